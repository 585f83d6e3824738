package conversation_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-intake-api/internal/domain/conversation"
)

func TestDecode_CanonicalTools(t *testing.T) {
	tools := conversation.DefaultTools()

	tests := []struct {
		name string
		tool string
		raw  string
		want conversation.Update
	}{
		{"first name", "setFirstName", `{"first_name":"Jane"}`, conversation.SetFirstName{Value: "Jane"}},
		{"camel case key", "setLastName", `{"lastName":"Doe"}`, conversation.SetLastName{Value: "Doe"}},
		{"case insensitive tool", "SETROLE", `{"role":"Caregiver"}`, conversation.SetRole{Role: "Caregiver"}},
		{"numeric phone", "setPhoneNumber", `{"phone_number":5551234567}`, conversation.SetPhoneNumber{Value: "5551234567"}},
		{"confirm bool", "confirmAccountStep", `{"confirmed":true}`, conversation.ConfirmAccountStep{Confirmed: true}},
		{"confirm string", "confirmHealthConditionsStep", `{"confirmed":"no"}`, conversation.ConfirmHealthConditionsStep{Confirmed: false}},
		{"bare confirm", "confirmMedicationsStep", `{}`, conversation.ConfirmMedicationsStep{Confirmed: true}},
		{"double encoded", "addHealthCondition", `"{\"condition\":\"Asthma\"}"`, conversation.AddHealthCondition{Name: "Asthma"}},
		{
			"add dose",
			"addDose",
			`{"medication_name":"Metformin","time_of_day":"8:00AM","days":["M","W","F"],"pill_count":"2"}`,
			conversation.AddDose{MedicationName: "Metformin", TimeOfDay: "8:00AM", Days: []string{"M", "W", "F"}, PillCount: 2},
		},
		{
			"remove dose with comma days",
			"removeDose",
			`{"medication_id":"med-1","time":"8:00PM","days":"M, W"}`,
			conversation.RemoveDose{MedicationID: "med-1", TimeOfDay: "8:00PM", Days: []string{"M", "W"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tools.Decode(tt.tool, json.RawMessage(tt.raw))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_ConditionList(t *testing.T) {
	got := conversation.DefaultTools().Decode("addHealthCondition", json.RawMessage(`{"conditions":["Asthma","Anxiety"]}`))

	batch, ok := got.(conversation.Batch)
	require.True(t, ok, "got %T", got)
	assert.Equal(t, []conversation.Update{
		conversation.AddHealthCondition{Name: "Asthma"},
		conversation.AddHealthCondition{Name: "Anxiety"},
	}, batch.Updates)
}

func TestDecode_UnknownTool(t *testing.T) {
	got := conversation.DefaultTools().Decode("setShoeSize", json.RawMessage(`{"size":9}`))

	unknown, ok := got.(conversation.Unknown)
	require.True(t, ok)
	assert.Equal(t, "setShoeSize", unknown.Name)
}

func TestDecode_BadParametersBecomeUnknown(t *testing.T) {
	tools := conversation.DefaultTools()

	for _, raw := range []string{`[1,2]`, `{"first_name":{"nested":true}}`} {
		got := tools.Decode("setFirstName", json.RawMessage(raw))
		_, ok := got.(conversation.Unknown)
		assert.True(t, ok, "raw %s decoded to %T", raw, got)
	}
}

func TestDecode_LegacyUserAccountInfo(t *testing.T) {
	raw := `{
		"first_name": "Jane",
		"last_name": "Doe",
		"role": "Caregiver",
		"phone_number": "(555) 123-4567",
		"relationship_to_loved_one": "Daughter",
		"loved_one": {
			"lovedOneFirstName": "Martha",
			"lovedOneLastName": "Doe",
			"lovedOneAlertPreferences": "Call"
		},
		"step_completed": true
	}`

	r := newReducer()
	s, err := r.Reduce(conversation.NewSnapshot(), conversation.DefaultTools().Decode("UserAccountInfo", json.RawMessage(raw)))
	require.NoError(t, err)

	require.NotNil(t, s.UserDetails)
	assert.Equal(t, "Jane", s.UserDetails.FirstName)
	assert.Equal(t, "Doe", s.UserDetails.LastName)
	assert.Equal(t, conversation.RoleCaregiver, s.UserDetails.Role)
	assert.Equal(t, "5551234567", s.UserDetails.PhoneNumber)
	assert.Equal(t, "Daughter", s.UserDetails.RelationshipToLovedOne)
	require.NotNil(t, s.UserDetails.LovedOne)
	assert.Equal(t, "Martha", s.UserDetails.LovedOne.FirstName)
	assert.Equal(t, conversation.AlertCall, s.UserDetails.LovedOne.AlertPreference)
	assert.True(t, s.UserDetails.StepCompleted)
	assert.Equal(t, conversation.StepHealthConditions, s.Step)
}

func TestDecode_NestedDoses(t *testing.T) {
	raw := `{
		"name": "Metformin",
		"strength": "500mg",
		"form": "Tablet",
		"doses": [
			{"timeOfDay": "8:00AM", "days": ["daily"], "pillCount": 1},
			{"timeOfDay": "8:00PM", "days": ["M","W","F"], "pillCount": 2}
		]
	}`

	r := newReducer()
	s, err := r.Reduce(conversation.NewSnapshot(), conversation.DefaultTools().Decode("upsertMedication", json.RawMessage(raw)))
	require.NoError(t, err)

	require.Len(t, s.Medications.Medications, 1)
	m := s.Medications.Medications[0]
	assert.Equal(t, "500mg", m.Strength)
	require.Len(t, m.Doses, 2)

	labels := make([]string, 0)
	for _, g := range m.Schedule() {
		labels = append(labels, g.Label)
	}
	assert.Equal(t, []string{"Everyday", "Mon, Wed, Fri"}, labels)
}

func TestToolTable_Names(t *testing.T) {
	names := conversation.DefaultTools().Names()
	assert.Contains(t, names, conversation.ToolUpsertMedication)
	assert.Contains(t, names, conversation.ToolUserAccountInfo)
	assert.IsIncreasing(t, names)
}
