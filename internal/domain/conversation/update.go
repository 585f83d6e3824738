package conversation

import "fmt"

// Update is one structured change requested by the agent. The set of
// variants is closed; Reduce switches over them exhaustively.
type Update interface {
	// Tool is the tool name the update was decoded from.
	Tool() string
	isUpdate()
}

type (
	// SessionStarted is emitted when the relay opens; it moves the wizard
	// from init to the account step.
	SessionStarted struct{}

	SetFirstName   struct{ Value string }
	SetLastName    struct{ Value string }
	SetPhoneNumber struct{ Value string }
	SetRole        struct{ Role Role }
	SetDateOfBirth struct{ Value string }
	// SetRelationship records the caregiver's relationship to the loved one.
	SetRelationship struct{ Value string }

	// SetLovedOne merges the non-empty fields into the loved-one record.
	SetLovedOne struct {
		FirstName        string
		LastName         string
		DateOfBirth      string
		AlertPreference  AlertPreference
		AlertPhoneNumber string
	}

	ConfirmAccountStep          struct{ Confirmed bool }
	ConfirmHealthConditionsStep struct{ Confirmed bool }
	ConfirmMedicationsStep      struct{ Confirmed bool }

	AddHealthCondition    struct{ Name string }
	RemoveHealthCondition struct{ Name string }

	// UpsertMedication resolves by MedicationID, then by case-insensitive
	// Name. Nil pointer fields leave the stored value untouched.
	UpsertMedication struct {
		MedicationID string
		Name         string
		Strength     *string
		Form         *string
		AsNeeded     *int
	}

	RemoveMedication struct {
		MedicationID string
		Name         string
	}

	// AddDose upserts a dose on a medication keyed by canonical time and
	// canonical day-set.
	AddDose struct {
		MedicationID   string
		MedicationName string
		TimeOfDay      string
		Days           []string
		PillCount      int
	}

	RemoveDose struct {
		MedicationID   string
		MedicationName string
		TimeOfDay      string
		Days           []string
	}

	// Batch applies several updates in order. Legacy composite payloads
	// decode into a Batch.
	Batch struct {
		Name    string
		Updates []Update
	}

	// Unknown is an unrecognized or unparseable tool call. Reduce ignores it.
	Unknown struct {
		Name   string
		Reason string
	}
)

func (SessionStarted) Tool() string              { return "sessionStarted" }
func (SetFirstName) Tool() string                { return ToolSetFirstName }
func (SetLastName) Tool() string                 { return ToolSetLastName }
func (SetPhoneNumber) Tool() string              { return ToolSetPhoneNumber }
func (SetRole) Tool() string                     { return ToolSetRole }
func (SetDateOfBirth) Tool() string              { return ToolSetDateOfBirth }
func (SetRelationship) Tool() string             { return ToolSetRelationship }
func (SetLovedOne) Tool() string                 { return ToolSetLovedOne }
func (ConfirmAccountStep) Tool() string          { return ToolConfirmAccountStep }
func (ConfirmHealthConditionsStep) Tool() string { return ToolConfirmHealthConditionsStep }
func (ConfirmMedicationsStep) Tool() string      { return ToolConfirmMedicationsStep }
func (AddHealthCondition) Tool() string          { return ToolAddHealthCondition }
func (RemoveHealthCondition) Tool() string       { return ToolRemoveHealthCondition }
func (UpsertMedication) Tool() string            { return ToolUpsertMedication }
func (RemoveMedication) Tool() string            { return ToolRemoveMedication }
func (AddDose) Tool() string                     { return ToolAddDose }
func (RemoveDose) Tool() string                  { return ToolRemoveDose }
func (b Batch) Tool() string                     { return b.Name }
func (u Unknown) Tool() string                   { return u.Name }

func (SessionStarted) isUpdate()              {}
func (SetFirstName) isUpdate()                {}
func (SetLastName) isUpdate()                 {}
func (SetPhoneNumber) isUpdate()              {}
func (SetRole) isUpdate()                     {}
func (SetDateOfBirth) isUpdate()              {}
func (SetRelationship) isUpdate()             {}
func (SetLovedOne) isUpdate()                 {}
func (ConfirmAccountStep) isUpdate()          {}
func (ConfirmHealthConditionsStep) isUpdate() {}
func (ConfirmMedicationsStep) isUpdate()      {}
func (AddHealthCondition) isUpdate()          {}
func (RemoveHealthCondition) isUpdate()       {}
func (UpsertMedication) isUpdate()            {}
func (RemoveMedication) isUpdate()            {}
func (AddDose) isUpdate()                     {}
func (RemoveDose) isUpdate()                  {}
func (Batch) isUpdate()                       {}
func (Unknown) isUpdate()                     {}

// MalformedUpdateError reports an update that failed validation. The
// snapshot is left as it was.
type MalformedUpdateError struct {
	Tool   string
	Field  string
	Reason string
}

func (e *MalformedUpdateError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("malformed %s update: %s", e.Tool, e.Reason)
	}
	return fmt.Sprintf("malformed %s update: %s: %s", e.Tool, e.Field, e.Reason)
}

func malformed(u Update, field, reason string) error {
	return &MalformedUpdateError{Tool: u.Tool(), Field: field, Reason: reason}
}
