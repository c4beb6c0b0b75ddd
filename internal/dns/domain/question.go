package domain

import "fmt"

// Question represents the single question carried by a query.
type Question struct {
	ID    uint16
	Name  string
	Type  RRType
	Class RRClass
}

// NewQuestion constructs a Question and validates its fields.
func NewQuestion(id uint16, name string, rrtype RRType, class RRClass) (Question, error) {
	q := Question{
		ID:    id,
		Name:  name,
		Type:  rrtype,
		Class: class,
	}
	if err := q.Validate(); err != nil {
		return Question{}, err
	}
	return q, nil
}

// Validate checks whether the Question fields are structurally and semantically valid.
func (q Question) Validate() error {
	if _, err := SplitLabels(q.Name); err != nil {
		return err
	}
	if !q.Type.IsQueryable() {
		return fmt.Errorf("unsupported query type: %s", q.Type)
	}
	if !q.Class.IsValid() {
		return fmt.Errorf("unsupported query class: %s", q.Class)
	}
	return nil
}
