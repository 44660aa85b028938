package models

import "time"

// MaxTeamMembers is the largest allowed team, lead included
const MaxTeamMembers = 5

// Team represents a group of participants sharing one submission
type Team struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	Slug      string    `json:"slug" bson:"slug"` // uniqueness key for Name
	LeadID    string    `json:"leadId" bson:"leadId"`
	Members   []string  `json:"members" bson:"members"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// HasMember checks if userID belongs to the team
func (t *Team) HasMember(userID string) bool {
	for _, m := range t.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// IsFull returns true when no more members can join
func (t *Team) IsFull() bool {
	return len(t.Members) >= MaxTeamMembers
}

// TeamView is a team with its members resolved
type TeamView struct {
	Team
	Lead       *UserSummary  `json:"lead,omitempty"`
	MemberList []UserSummary `json:"memberList"`
}
