// Package voiceintakeapi implements the voice-intake-api service, which
// relays browser voice sessions to a hosted conversational agent.
//
// The service provides:
//   - A WebSocket relay between the browser and the agent, with the agent
//     credentials kept server-side
//   - Reconciliation of agent tool calls into an intake snapshot (account,
//     health conditions, medications)
//   - Grouped medication dosing schedules
//   - Signed webhook ingress fanned out to server-sent event listeners
//   - JWT authentication via Keycloak
package voiceintakeapi
