package domain

import "time"

// ProposalStatus tracks a proposal through voting to finalization.
type ProposalStatus string

const (
	ProposalOpen     ProposalStatus = "open"
	ProposalAccepted ProposalStatus = "accepted"
	ProposalRejected ProposalStatus = "rejected"
	ProposalTimedOut ProposalStatus = "timed_out"
)

// Terminal reports whether s admits no further transitions.
func (s ProposalStatus) Terminal() bool {
	return s != ProposalOpen
}

// VoteChoice is a caster's decision on a proposal.
type VoteChoice string

const (
	VoteYes VoteChoice = "yes"
	VoteNo  VoteChoice = "no"
)

// Vote is one agent's decision on a Proposal. At most one vote per
// (proposal, voter) is ever recorded; a second vote from the same
// AgentID is dropped, not merged.
type Vote struct {
	AgentID      string     `json:"agent_id"`
	Choice       VoteChoice `json:"choice"`
	SignatureTag string     `json:"signature_tag,omitempty"`
	CastAt       time.Time  `json:"cast_at"`
}

// Proposal is a single consensus round. RequiredVotes is computed and
// frozen at creation time from the registry's membership count at that
// instant; later joins or departures do not retroactively change it.
type Proposal struct {
	ID            string         `json:"id"`
	Kind          string         `json:"kind"`
	Data          map[string]any `json:"data,omitempty"`
	ProposedBy    string         `json:"proposed_by"`
	RequiredVotes int            `json:"required_votes"`
	Votes         map[string]Vote `json:"votes"`
	Status        ProposalStatus `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	ResolvedAt    *time.Time     `json:"resolved_at,omitempty"`
}

// Tally counts current yes/no votes.
func (p Proposal) Tally() (yes, no int) {
	for _, v := range p.Votes {
		if v.Choice == VoteYes {
			yes++
		} else {
			no++
		}
	}
	return
}
