package model

import "strings"

// FieldName is the tag of an editable review request draft field.
type FieldName string

const (
	FieldSummary           FieldName = "summary"
	FieldDescription       FieldName = "description"
	FieldTestingDone       FieldName = "testing_done"
	FieldBugsClosed        FieldName = "bugs_closed"
	FieldBranch            FieldName = "branch"
	FieldTargetGroups      FieldName = "target_groups"
	FieldTargetPeople      FieldName = "target_people"
	FieldChangeDescription FieldName = "changedescription"
)

// FieldValue is the value accepted by a field editor. Exactly one of Text or
// List is meaningful; IsList selects which.
type FieldValue struct {
	Text   string
	List   []string
	IsList bool
}

// TextValue returns a single-string field value.
func TextValue(s string) FieldValue {
	return FieldValue{Text: s}
}

// ListValue returns a list field value such as bug numbers or reviewer names.
func ListValue(items ...string) FieldValue {
	return FieldValue{List: items, IsList: true}
}

// Encode returns the form value sent to the server. Lists are comma-joined.
func (v FieldValue) Encode() string {
	if v.IsList {
		return strings.Join(v.List, ", ")
	}
	return v.Text
}

// FieldEditEvent is emitted when an external field editor completes an edit.
type FieldEditEvent struct {
	Field FieldName
	Value FieldValue
}

// DraftDisplay holds the current display values of the fields that gate
// publishing.
type DraftDisplay struct {
	TargetPeople string
	TargetGroups string
	Summary      string
	Description  string
}
