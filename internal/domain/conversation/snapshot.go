package conversation

import (
	"voice-intake-api/internal/domain/dose"
)

// Role is the closed set of account roles.
type Role string

const (
	RolePrimaryUser Role = "Primary User"
	RoleCaregiver   Role = "Caregiver"
)

// AlertPreference is how a caregiver wants to be alerted about a loved one.
type AlertPreference string

const (
	AlertSMS  AlertPreference = "SMS"
	AlertCall AlertPreference = "Call"
	AlertPush AlertPreference = "Push Notification"
)

// Step is one stage of the intake wizard.
type Step string

const (
	StepInit             Step = "init"
	StepAccount          Step = "account"
	StepHealthConditions Step = "healthConditions"
	StepMedications      Step = "medications"
)

var stepOrder = map[Step]int{
	StepInit:             0,
	StepAccount:          1,
	StepHealthConditions: 2,
	StepMedications:      3,
}

// advance returns the later of two steps.
func (s Step) advance(to Step) Step {
	if stepOrder[to] > stepOrder[s] {
		return to
	}
	return s
}

// LovedOne is the person a caregiver is enrolling.
type LovedOne struct {
	FirstName        string          `json:"firstName,omitempty"`
	LastName         string          `json:"lastName,omitempty"`
	DateOfBirth      string          `json:"dateOfBirth,omitempty"`
	AlertPreference  AlertPreference `json:"alertPreference,omitempty"`
	AlertPhoneNumber string          `json:"alertPhoneNumber,omitempty"`
}

// UserDetails holds the account step.
type UserDetails struct {
	FirstName     string `json:"firstName,omitempty"`
	LastName      string `json:"lastName,omitempty"`
	PhoneNumber   string `json:"phoneNumber,omitempty"`
	Role          Role   `json:"role,omitempty"`
	StepCompleted bool   `json:"stepCompleted"`

	// Primary User only.
	DateOfBirth string `json:"dateOfBirth,omitempty"`

	// Caregiver only.
	RelationshipToLovedOne string    `json:"relationshipToLovedOne,omitempty"`
	LovedOne               *LovedOne `json:"lovedOne,omitempty"`
}

// HealthConditions holds the health conditions step.
type HealthConditions struct {
	Conditions    []string `json:"conditions"`
	StepCompleted bool     `json:"stepCompleted"`
}

// Medication is one medication with its dose schedule.
// AsNeeded is the as-needed pill count; zero means not taken as needed.
type Medication struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Strength string       `json:"strength,omitempty"`
	Form     string       `json:"form,omitempty"`
	Doses    []dose.Entry `json:"doses"`
	AsNeeded int          `json:"asNeeded"`
}

// Medications holds the medications step.
type Medications struct {
	Medications   []Medication `json:"medications"`
	StepCompleted bool         `json:"stepCompleted"`
}

// Snapshot is the merged view of everything collected in one conversation.
type Snapshot struct {
	Step             Step              `json:"step"`
	UserDetails      *UserDetails      `json:"userDetails,omitempty"`
	HealthConditions *HealthConditions `json:"healthConditions,omitempty"`
	Medications      *Medications      `json:"medications,omitempty"`
}

// NewSnapshot returns the empty snapshot a session starts with.
func NewSnapshot() Snapshot {
	return Snapshot{Step: StepInit}
}

// Clone returns a deep copy. Nil sections and nil slices stay nil.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{Step: s.Step}

	if s.UserDetails != nil {
		ud := *s.UserDetails
		if ud.LovedOne != nil {
			lo := *ud.LovedOne
			ud.LovedOne = &lo
		}
		out.UserDetails = &ud
	}

	if s.HealthConditions != nil {
		hc := *s.HealthConditions
		hc.Conditions = cloneSlice(hc.Conditions)
		out.HealthConditions = &hc
	}

	if s.Medications != nil {
		meds := *s.Medications
		if meds.Medications != nil {
			meds.Medications = make([]Medication, len(s.Medications.Medications))
			for i, m := range s.Medications.Medications {
				meds.Medications[i] = m.clone()
			}
		}
		out.Medications = &meds
	}

	return out
}

func (m Medication) clone() Medication {
	out := m
	if m.Doses != nil {
		out.Doses = make([]dose.Entry, len(m.Doses))
		for i, d := range m.Doses {
			d.Days = cloneSlice(d.Days)
			out.Doses[i] = d
		}
	}
	return out
}

// Schedule groups the medication's doses for display, including its
// as-needed count.
func (m Medication) Schedule() dose.Groups {
	return dose.Schedule(m.Doses, m.AsNeeded)
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
