package domain

// AttributeReassignment redirects an attribute group from the choice of the
// rule association it is keyed on to ToChoiceID.
type AttributeReassignment struct {
	ID                int64
	TreeVersionID     string
	ToChoiceID        int64
	RuleAssociationID int64
	AttributeGroupID  int64
}
