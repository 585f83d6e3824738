package conversation

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Canonical tool names registered with the agent.
const (
	ToolSetFirstName                = "setFirstName"
	ToolSetLastName                 = "setLastName"
	ToolSetPhoneNumber              = "setPhoneNumber"
	ToolSetRole                     = "setRole"
	ToolSetDateOfBirth              = "setDateOfBirth"
	ToolSetRelationship             = "setRelationship"
	ToolSetLovedOne                 = "setLovedOne"
	ToolConfirmAccountStep          = "confirmAccountStep"
	ToolAddHealthCondition          = "addHealthCondition"
	ToolRemoveHealthCondition       = "removeHealthCondition"
	ToolConfirmHealthConditionsStep = "confirmHealthConditionsStep"
	ToolUpsertMedication            = "upsertMedication"
	ToolRemoveMedication            = "removeMedication"
	ToolAddDose                     = "addDose"
	ToolRemoveDose                  = "removeDose"
	ToolConfirmMedicationsStep      = "confirmMedicationsStep"

	// ToolUserAccountInfo is the composite account tool older agent
	// configurations still call.
	ToolUserAccountInfo = "UserAccountInfo"
)

// DecodeFunc turns one tool call's parameters into an Update.
type DecodeFunc func(p Params) (Update, error)

// ToolTable maps tool names to decoders. Lookups are case-insensitive.
type ToolTable map[string]DecodeFunc

// DefaultTools returns the decoders for every canonical tool plus the
// legacy aliases.
func DefaultTools() ToolTable {
	return ToolTable{
		ToolSetFirstName:   scalar(func(v string) Update { return SetFirstName{Value: v} }, "first_name", "firstName", "value", "name"),
		ToolSetLastName:    scalar(func(v string) Update { return SetLastName{Value: v} }, "last_name", "lastName", "value", "name"),
		ToolSetPhoneNumber: scalar(func(v string) Update { return SetPhoneNumber{Value: v} }, "phone_number", "phone", "value"),
		ToolSetRole:        scalar(func(v string) Update { return SetRole{Role: Role(v)} }, "role", "value"),
		ToolSetDateOfBirth: scalar(func(v string) Update { return SetDateOfBirth{Value: v} }, "date_of_birth", "dob", "value"),
		ToolSetRelationship: scalar(func(v string) Update { return SetRelationship{Value: v} },
			"relationship", "relationship_to_loved_one", "value"),
		ToolSetLovedOne: decodeLovedOne,

		ToolConfirmAccountStep:          confirm(func(b bool) Update { return ConfirmAccountStep{Confirmed: b} }),
		ToolConfirmHealthConditionsStep: confirm(func(b bool) Update { return ConfirmHealthConditionsStep{Confirmed: b} }),
		ToolConfirmMedicationsStep:      confirm(func(b bool) Update { return ConfirmMedicationsStep{Confirmed: b} }),

		ToolAddHealthCondition:    conditions(func(v string) Update { return AddHealthCondition{Name: v} }),
		ToolRemoveHealthCondition: conditions(func(v string) Update { return RemoveHealthCondition{Name: v} }),

		ToolUpsertMedication: decodeUpsertMedication,
		ToolRemoveMedication: decodeRemoveMedication,
		ToolAddDose:          decodeAddDose,
		ToolRemoveDose:       decodeRemoveDose,

		ToolUserAccountInfo: decodeUserAccountInfo,
	}
}

// Names returns the registered tool names, sorted.
func (t ToolTable) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (t ToolTable) find(tool string) (DecodeFunc, bool) {
	if fn, ok := t[tool]; ok {
		return fn, true
	}
	for name, fn := range t {
		if strings.EqualFold(name, tool) {
			return fn, true
		}
	}
	return nil, false
}

// Decode validates a tool call and returns its typed Update. Unrecognized
// tools and payloads that do not parse become Unknown.
func (t ToolTable) Decode(tool string, raw json.RawMessage) Update {
	fn, ok := t.find(tool)
	if !ok {
		return Unknown{Name: tool, Reason: "unrecognized tool"}
	}
	p, err := parseParams(raw)
	if err != nil {
		return Unknown{Name: tool, Reason: err.Error()}
	}
	u, err := fn(p)
	if err != nil {
		return Unknown{Name: tool, Reason: err.Error()}
	}
	return u
}

func scalar(build func(string) Update, keys ...string) DecodeFunc {
	return func(p Params) (Update, error) {
		v, err := p.str(keys...)
		if err != nil {
			return nil, err
		}
		return build(v), nil
	}
}

func confirm(build func(bool) Update) DecodeFunc {
	return func(p Params) (Update, error) {
		b, err := p.boolean("confirmed", "step_completed", "is_confirmed", "value")
		if err != nil {
			return nil, err
		}
		if b == nil {
			// A bare call with no arguments is a confirmation.
			return build(len(p) == 0), nil
		}
		return build(*b), nil
	}
}

// conditions accepts a single condition or a list; a list becomes a Batch.
func conditions(build func(string) Update) DecodeFunc {
	return func(p Params) (Update, error) {
		names, err := p.strList("condition", "conditions", "name", "value")
		if err != nil {
			return nil, err
		}
		if len(names) == 0 {
			return nil, fmt.Errorf("condition is required")
		}
		if len(names) == 1 {
			return build(names[0]), nil
		}
		batch := Batch{Updates: make([]Update, len(names))}
		for i, n := range names {
			batch.Updates[i] = build(n)
		}
		batch.Name = batch.Updates[0].Tool()
		return batch, nil
	}
}

func decodeLovedOne(p Params) (Update, error) {
	var (
		u   SetLovedOne
		err error
	)
	fields := []struct {
		dst  *string
		keys []string
	}{
		{&u.FirstName, []string{"first_name", "loved_one_first_name"}},
		{&u.LastName, []string{"last_name", "loved_one_last_name"}},
		{&u.DateOfBirth, []string{"date_of_birth", "loved_one_date_of_birth"}},
		{&u.AlertPhoneNumber, []string{"alert_phone_number", "loved_one_alert_phone_number"}},
	}
	for _, f := range fields {
		if *f.dst, err = p.str(f.keys...); err != nil {
			return nil, err
		}
	}
	pref, err := p.str("alert_preference", "alert_preferences", "loved_one_alert_preferences")
	if err != nil {
		return nil, err
	}
	u.AlertPreference = AlertPreference(pref)
	return u, nil
}

func medicationRef(p Params) (id, name string, err error) {
	if id, err = p.str("medication_id", "current_medication_id", "id"); err != nil {
		return "", "", err
	}
	if name, err = p.str("medication_name", "medication", "name"); err != nil {
		return "", "", err
	}
	return id, name, nil
}

func decodeUpsertMedication(p Params) (Update, error) {
	id, name, err := medicationRef(p)
	if err != nil {
		return nil, err
	}
	if id == "" && name == "" {
		return nil, fmt.Errorf("medication_id or name is required")
	}
	u := UpsertMedication{MedicationID: id, Name: name}
	if u.Strength, err = p.optStr("strength", "dosage"); err != nil {
		return nil, err
	}
	if u.Form, err = p.optStr("form"); err != nil {
		return nil, err
	}
	if u.AsNeeded, err = p.integer("as_needed", "as_needed_pill_count"); err != nil {
		return nil, err
	}

	// Older payloads nest the dose list inside the medication.
	doses, err := p.objects("doses", "dose")
	if err != nil {
		return nil, err
	}
	if len(doses) == 0 {
		return u, nil
	}
	batch := Batch{Name: ToolUpsertMedication, Updates: []Update{u}}
	for _, d := range doses {
		add, err := decodeDoseFields(d)
		if err != nil {
			return nil, err
		}
		add.MedicationID = id
		add.MedicationName = name
		batch.Updates = append(batch.Updates, add)
	}
	return batch, nil
}

func decodeRemoveMedication(p Params) (Update, error) {
	id, name, err := medicationRef(p)
	if err != nil {
		return nil, err
	}
	if id == "" && name == "" {
		return nil, fmt.Errorf("medication_id or name is required")
	}
	return RemoveMedication{MedicationID: id, Name: name}, nil
}

func decodeDoseFields(p Params) (AddDose, error) {
	var (
		u   AddDose
		err error
	)
	if u.TimeOfDay, err = p.str("time_of_day", "time"); err != nil {
		return u, err
	}
	if u.Days, err = p.strList("days", "day"); err != nil {
		return u, err
	}
	count, err := p.integer("pill_count", "pills", "count")
	if err != nil {
		return u, err
	}
	if count != nil {
		u.PillCount = *count
	}
	return u, nil
}

func decodeAddDose(p Params) (Update, error) {
	id, name, err := medicationRef(p)
	if err != nil {
		return nil, err
	}
	u, err := decodeDoseFields(p)
	if err != nil {
		return nil, err
	}
	u.MedicationID, u.MedicationName = id, name
	return u, nil
}

func decodeRemoveDose(p Params) (Update, error) {
	add, err := decodeAddDose(p)
	if err != nil {
		return nil, err
	}
	d := add.(AddDose)
	return RemoveDose{
		MedicationID:   d.MedicationID,
		MedicationName: d.MedicationName,
		TimeOfDay:      d.TimeOfDay,
		Days:           d.Days,
	}, nil
}

// decodeUserAccountInfo expands the composite account payload into the
// individual field updates it carries.
func decodeUserAccountInfo(p Params) (Update, error) {
	batch := Batch{Name: ToolUserAccountInfo}
	appendIf := func(value string, build func(string) Update) {
		if value != "" {
			batch.Updates = append(batch.Updates, build(value))
		}
	}

	first, err := p.str("first_name")
	if err != nil {
		return nil, err
	}
	last, err := p.str("last_name")
	if err != nil {
		return nil, err
	}
	role, err := p.str("role")
	if err != nil {
		return nil, err
	}
	dob, err := p.str("date_of_birth")
	if err != nil {
		return nil, err
	}
	phone, err := p.str("phone_number")
	if err != nil {
		return nil, err
	}
	relationship, err := p.str("relationship_to_loved_one", "relationship")
	if err != nil {
		return nil, err
	}

	appendIf(first, func(v string) Update { return SetFirstName{Value: v} })
	appendIf(last, func(v string) Update { return SetLastName{Value: v} })
	appendIf(role, func(v string) Update { return SetRole{Role: Role(v)} })
	appendIf(dob, func(v string) Update { return SetDateOfBirth{Value: v} })
	appendIf(phone, func(v string) Update { return SetPhoneNumber{Value: v} })
	appendIf(relationship, func(v string) Update { return SetRelationship{Value: v} })

	lovedOne, err := p.object("loved_one")
	if err != nil {
		return nil, err
	}
	if len(lovedOne) > 0 {
		lo, err := decodeLovedOne(lovedOne)
		if err != nil {
			return nil, err
		}
		batch.Updates = append(batch.Updates, lo)
	}

	done, err := p.boolean("step_completed", "is_confirmed")
	if err != nil {
		return nil, err
	}
	if done != nil && *done {
		batch.Updates = append(batch.Updates, ConfirmAccountStep{Confirmed: true})
	}

	if len(batch.Updates) == 0 {
		return nil, fmt.Errorf("no account fields present")
	}
	return batch, nil
}
