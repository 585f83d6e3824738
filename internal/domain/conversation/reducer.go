package conversation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"voice-intake-api/internal/domain/dose"
	"voice-intake-api/internal/utils/idgen"
)

// Reducer merges updates into snapshots. It performs no I/O; the id
// generator is the only source of non-determinism.
type Reducer struct {
	ids idgen.Generator
}

// NewReducer creates a reducer that assigns new medication ids from ids.
func NewReducer(ids idgen.Generator) *Reducer {
	if ids == nil {
		ids = idgen.UUIDGenerator{}
	}
	return &Reducer{ids: ids}
}

// Reduce applies u to s and returns the resulting snapshot. s is never
// modified. When u fails validation Reduce returns s unchanged together with
// a *MalformedUpdateError. Unknown updates are a silent no-op.
func (r *Reducer) Reduce(s Snapshot, u Update) (Snapshot, error) {
	switch u := u.(type) {
	case nil:
		return s, nil
	case Unknown:
		return s, nil
	case Batch:
		return r.reduceBatch(s, u)
	}

	next := s.Clone()
	changed, err := r.apply(&next, u)
	if err != nil || !changed {
		return s, err
	}
	return next, nil
}

// reduceBatch applies each element in turn. Malformed elements are skipped
// and their errors joined; the valid elements still take effect.
func (r *Reducer) reduceBatch(s Snapshot, b Batch) (Snapshot, error) {
	var errs []error
	cur := s
	for _, u := range b.Updates {
		next, err := r.Reduce(cur, u)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		cur = next
	}
	return cur, errors.Join(errs...)
}

// apply mutates the already-cloned snapshot. The bool reports whether
// anything changed.
func (r *Reducer) apply(s *Snapshot, u Update) (bool, error) {
	switch u := u.(type) {
	case SessionStarted:
		if s.Step != StepInit {
			return false, nil
		}
		s.Step = StepAccount
		return true, nil

	case SetFirstName:
		return setAccountField(s, u.Value, func(ud *UserDetails, v string) { ud.FirstName = v }), nil
	case SetLastName:
		return setAccountField(s, u.Value, func(ud *UserDetails, v string) { ud.LastName = v }), nil
	case SetDateOfBirth:
		return setAccountField(s, u.Value, func(ud *UserDetails, v string) { ud.DateOfBirth = v }), nil
	case SetRelationship:
		return setAccountField(s, u.Value, func(ud *UserDetails, v string) { ud.RelationshipToLovedOne = v }), nil

	case SetPhoneNumber:
		if strings.TrimSpace(u.Value) == "" {
			return false, nil
		}
		phone, err := NormalizePhone(u.Value)
		if err != nil {
			return false, malformed(u, "phone_number", err.Error())
		}
		return setAccountField(s, phone, func(ud *UserDetails, v string) { ud.PhoneNumber = v }), nil

	case SetRole:
		if u.Role == "" {
			return false, nil
		}
		role, ok := ParseRole(string(u.Role))
		if !ok {
			return false, malformed(u, "role", fmt.Sprintf("unknown role %q", u.Role))
		}
		return setAccountField(s, string(role), func(ud *UserDetails, v string) { ud.Role = Role(v) }), nil

	case SetLovedOne:
		return r.setLovedOne(s, u)

	case ConfirmAccountStep:
		if !u.Confirmed {
			return false, nil
		}
		return completeStep(&ensureUserDetails(s).StepCompleted, &s.Step, StepHealthConditions), nil

	case ConfirmHealthConditionsStep:
		if !u.Confirmed {
			return false, nil
		}
		return completeStep(&ensureHealthConditions(s).StepCompleted, &s.Step, StepMedications), nil

	case ConfirmMedicationsStep:
		if !u.Confirmed {
			return false, nil
		}
		return completeStep(&ensureMedications(s).StepCompleted, &s.Step, StepMedications), nil

	case AddHealthCondition:
		name := strings.TrimSpace(u.Name)
		if name == "" {
			return false, nil
		}
		hc := ensureHealthConditions(s)
		if indexCondition(hc.Conditions, name) >= 0 {
			return false, nil
		}
		hc.Conditions = append(hc.Conditions, name)
		return true, nil

	case RemoveHealthCondition:
		if s.HealthConditions == nil {
			return false, nil
		}
		i := indexCondition(s.HealthConditions.Conditions, u.Name)
		if i < 0 {
			return false, nil
		}
		c := s.HealthConditions.Conditions
		s.HealthConditions.Conditions = append(c[:i:i], c[i+1:]...)
		return true, nil

	case UpsertMedication:
		return r.upsertMedication(s, u)

	case RemoveMedication:
		if s.Medications == nil {
			return false, nil
		}
		i := indexMedication(s.Medications.Medications, u.MedicationID, u.Name)
		if i < 0 {
			return false, nil
		}
		m := s.Medications.Medications
		s.Medications.Medications = append(m[:i:i], m[i+1:]...)
		return true, nil

	case AddDose:
		return addDose(s, u)

	case RemoveDose:
		return removeDose(s, u)

	default:
		return false, malformed(u, "", fmt.Sprintf("unsupported update %T", u))
	}
}

func setAccountField(s *Snapshot, value string, set func(*UserDetails, string)) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	set(ensureUserDetails(s), value)
	s.Step = s.Step.advance(StepAccount)
	return true
}

func (r *Reducer) setLovedOne(s *Snapshot, u SetLovedOne) (bool, error) {
	var pref AlertPreference
	if u.AlertPreference != "" {
		p, ok := ParseAlertPreference(string(u.AlertPreference))
		if !ok {
			return false, malformed(u, "alert_preference", fmt.Sprintf("unknown alert preference %q", u.AlertPreference))
		}
		pref = p
	}
	var alertPhone string
	if strings.TrimSpace(u.AlertPhoneNumber) != "" {
		p, err := NormalizePhone(u.AlertPhoneNumber)
		if err != nil {
			return false, malformed(u, "alert_phone_number", err.Error())
		}
		alertPhone = p
	}

	ud := ensureUserDetails(s)
	lo := ud.LovedOne
	if lo == nil {
		lo = &LovedOne{}
	}
	before := *lo

	overwrite(&lo.FirstName, u.FirstName)
	overwrite(&lo.LastName, u.LastName)
	overwrite(&lo.DateOfBirth, u.DateOfBirth)
	if pref != "" {
		lo.AlertPreference = pref
	}
	if alertPhone != "" {
		lo.AlertPhoneNumber = alertPhone
	}

	if *lo == before {
		return false, nil
	}
	ud.LovedOne = lo
	s.Step = s.Step.advance(StepAccount)
	return true, nil
}

func (r *Reducer) upsertMedication(s *Snapshot, u UpsertMedication) (bool, error) {
	name := strings.TrimSpace(u.Name)
	if u.AsNeeded != nil && *u.AsNeeded < 0 {
		return false, malformed(u, "as_needed", "must not be negative")
	}

	meds := ensureMedications(s)
	i := indexMedication(meds.Medications, u.MedicationID, name)
	created := i < 0
	if created {
		if name == "" {
			return false, malformed(u, "name", "required for a new medication")
		}
		meds.Medications = append(meds.Medications, Medication{
			ID:    r.ids.NewID(),
			Name:  name,
			Doses: []dose.Entry{},
		})
		i = len(meds.Medications) - 1
	} else if name != "" && !strings.EqualFold(meds.Medications[i].Name, name) {
		if other := indexMedication(meds.Medications, "", name); other >= 0 && other != i {
			return false, malformed(u, "name", fmt.Sprintf("another medication is already named %q", name))
		}
	}

	m := &meds.Medications[i]
	before := m.clone()
	overwrite(&m.Name, name)
	if u.Strength != nil {
		overwrite(&m.Strength, *u.Strength)
	}
	if u.Form != nil {
		overwrite(&m.Form, *u.Form)
	}
	if u.AsNeeded != nil {
		m.AsNeeded = *u.AsNeeded
	}

	return created || !medicationEqual(before, *m), nil
}

func addDose(s *Snapshot, u AddDose) (bool, error) {
	if !dose.ValidTime(u.TimeOfDay) {
		return false, malformed(u, "time_of_day", fmt.Sprintf("%q is not H:MM AM/PM", u.TimeOfDay))
	}
	days, err := dose.ParseDays(u.Days)
	if err != nil {
		return false, malformed(u, "days", err.Error())
	}
	if u.PillCount <= 0 {
		return false, malformed(u, "pill_count", "must be a positive integer")
	}
	if s.Medications == nil {
		return false, malformed(u, "medication", "unknown medication")
	}
	i := indexMedication(s.Medications.Medications, u.MedicationID, u.MedicationName)
	if i < 0 {
		return false, malformed(u, "medication", "unknown medication")
	}

	canonical, _ := dose.CanonicalTime(u.TimeOfDay)
	entry := dose.Entry{TimeOfDay: canonical, Days: days, PillCount: u.PillCount}
	key, _ := entry.Key()

	m := &s.Medications.Medications[i]
	for j, existing := range m.Doses {
		if k, ok := existing.Key(); ok && k == key {
			if existing.PillCount == entry.PillCount {
				return false, nil
			}
			m.Doses[j] = entry
			return true, nil
		}
	}
	m.Doses = append(m.Doses, entry)
	return true, nil
}

func removeDose(s *Snapshot, u RemoveDose) (bool, error) {
	target := dose.Entry{TimeOfDay: u.TimeOfDay, Days: toDays(u.Days)}
	key, ok := target.Key()
	if !ok {
		return false, malformed(u, "dose", "time or days do not parse")
	}
	if s.Medications == nil {
		return false, nil
	}
	i := indexMedication(s.Medications.Medications, u.MedicationID, u.MedicationName)
	if i < 0 {
		return false, nil
	}

	m := &s.Medications.Medications[i]
	for j, existing := range m.Doses {
		if k, ok := existing.Key(); ok && k == key {
			m.Doses = append(m.Doses[:j:j], m.Doses[j+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// NormalizePhone strips every non-digit and requires exactly ten digits.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) != 10 {
		return "", fmt.Errorf("expected 10 digits, got %d", len(digits))
	}
	return digits, nil
}

// ParseRole matches a role case-insensitively. "primary" alone is accepted.
func ParseRole(raw string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "primary user", "primary", "primary_user":
		return RolePrimaryUser, true
	case "caregiver", "care giver":
		return RoleCaregiver, true
	}
	return "", false
}

// ParseAlertPreference matches an alert preference case-insensitively.
func ParseAlertPreference(raw string) (AlertPreference, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sms", "text":
		return AlertSMS, true
	case "call", "phone":
		return AlertCall, true
	case "push notification", "push":
		return AlertPush, true
	}
	return "", false
}

// completeStep marks a section complete and advances the step. It reports
// false when both were already in place.
func completeStep(done *bool, step *Step, next Step) bool {
	advanced := step.advance(next)
	if *done && advanced == *step {
		return false
	}
	*done = true
	*step = advanced
	return true
}

func ensureUserDetails(s *Snapshot) *UserDetails {
	if s.UserDetails == nil {
		s.UserDetails = &UserDetails{}
	}
	return s.UserDetails
}

func ensureHealthConditions(s *Snapshot) *HealthConditions {
	if s.HealthConditions == nil {
		s.HealthConditions = &HealthConditions{Conditions: []string{}}
	}
	return s.HealthConditions
}

func ensureMedications(s *Snapshot) *Medications {
	if s.Medications == nil {
		s.Medications = &Medications{Medications: []Medication{}}
	}
	return s.Medications
}

func conditionKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func indexCondition(conditions []string, name string) int {
	key := conditionKey(name)
	if key == "" {
		return -1
	}
	for i, c := range conditions {
		if conditionKey(c) == key {
			return i
		}
	}
	return -1
}

// indexMedication resolves by id first, then by case-insensitive name.
func indexMedication(meds []Medication, id, name string) int {
	if id = strings.TrimSpace(id); id != "" {
		for i, m := range meds {
			if m.ID == id {
				return i
			}
		}
	}
	if name = strings.TrimSpace(name); name != "" {
		for i, m := range meds {
			if strings.EqualFold(m.Name, name) {
				return i
			}
		}
	}
	return -1
}

func overwrite(dst *string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		*dst = v
	}
}

func medicationEqual(a, b Medication) bool {
	return a.ID == b.ID && a.Name == b.Name && a.Strength == b.Strength &&
		a.Form == b.Form && a.AsNeeded == b.AsNeeded && len(a.Doses) == len(b.Doses)
}

func toDays(raw []string) []dose.Day {
	out := make([]dose.Day, len(raw))
	for i, r := range raw {
		out[i] = dose.Day(r)
	}
	return out
}
