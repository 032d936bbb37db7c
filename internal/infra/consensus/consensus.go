// Package consensus runs crash-fault-tolerant (not Byzantine-fault-
// tolerant) voting rounds among registered agents. A proposal's quorum is
// a simple majority of the registry's membership count frozen at the
// moment the proposal is created.
package consensus

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tutu-network/swarmd/internal/domain"
	"github.com/tutu-network/swarmd/internal/eventbus"
	"github.com/tutu-network/swarmd/internal/infra/registry"
)

// Config tunes the timeout sweep.
type Config struct {
	VotingTimeout  time.Duration
	SweepInterval  time.Duration
	Now            func() time.Time
}

// DefaultConfig returns the consensus manager's production tuning.
func DefaultConfig() Config {
	return Config{
		VotingTimeout: 30 * time.Second,
		SweepInterval: 5 * time.Second,
		Now:           time.Now,
	}
}

// Manager runs proposals to completion: accepted once yes-votes reach
// quorum, rejected once no-votes reach quorum or every member has voted
// without reaching it, or timed out after VotingTimeout.
type Manager struct {
	cfg Config
	reg *registry.Registry
	bus *eventbus.Bus

	mu        sync.Mutex
	proposals map[string]*domain.Proposal

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New constructs a Manager that sizes quorum off reg and publishes onto
// bus.
func New(cfg Config, reg *registry.Registry, bus *eventbus.Bus) *Manager {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{
		cfg:       cfg,
		reg:       reg,
		bus:       bus,
		proposals: make(map[string]*domain.Proposal),
		stopCh:    make(chan struct{}),
	}
}

// Propose opens a new proposal, freezing RequiredVotes from the
// registry's current membership count.
func (m *Manager) Propose(kind, proposedBy string, data map[string]any) domain.Proposal {
	members := 1
	if m.reg != nil {
		if n := m.reg.Count(); n > 0 {
			members = n
		}
	}
	required := members/2 + 1

	p := &domain.Proposal{
		ID:            uuid.NewString(),
		Kind:          kind,
		Data:          data,
		ProposedBy:    proposedBy,
		RequiredVotes: required,
		Votes:         make(map[string]domain.Vote),
		Status:        domain.ProposalOpen,
		CreatedAt:     m.cfg.Now(),
	}

	m.mu.Lock()
	m.proposals[p.ID] = p
	snapshot := *p
	m.mu.Unlock()

	if m.bus != nil {
		m.bus.Publish(eventbus.ProposalCreated, snapshot)
	}
	return snapshot
}

// Vote records agentID's choice on proposalID. An unknown proposal, an
// already-resolved proposal, and a second vote from an agent that has
// already voted are all dropped: the caller gets an error back (so it
// can log the warning spec.md calls for) but the proposal's state is
// otherwise untouched — a vote arriving after finalization never
// retroactively changes the outcome.
func (m *Manager) Vote(proposalID, agentID string, choice domain.VoteChoice, signatureTag string) error {
	m.mu.Lock()
	p, ok := m.proposals[proposalID]
	if !ok {
		m.mu.Unlock()
		return domain.Errorf(domain.ErrConsensusFailed, "proposal %q not found", proposalID)
	}
	if p.Status.Terminal() {
		m.mu.Unlock()
		return domain.Errorf(domain.ErrConsensusFailed, "proposal %q already resolved", proposalID)
	}
	if _, voted := p.Votes[agentID]; voted {
		m.mu.Unlock()
		return domain.Errorf(domain.ErrConsensusFailed, "agent %q already voted on proposal %q", agentID, proposalID)
	}
	p.Votes[agentID] = domain.Vote{AgentID: agentID, Choice: choice, SignatureTag: signatureTag, CastAt: m.cfg.Now()}
	resolved := m.tallyLocked(p)
	m.mu.Unlock()

	if m.bus != nil && resolved != nil {
		m.bus.Publish(eventbus.ConsensusReached, *resolved)
	}
	return nil
}

// tallyLocked checks whether p has reached a terminal outcome given its
// current votes, finalizes it if so, and returns the finalized snapshot
// (or nil if still open). Callers must hold m.mu.
func (m *Manager) tallyLocked(p *domain.Proposal) *domain.Proposal {
	yes, no := p.Tally()
	total := yes + no

	memberCount := 1
	if m.reg != nil {
		if n := m.reg.Count(); n > 0 {
			memberCount = n
		}
	}

	switch {
	case yes >= p.RequiredVotes:
		p.Status = domain.ProposalAccepted
	case no >= p.RequiredVotes:
		p.Status = domain.ProposalRejected
	case total >= memberCount:
		p.Status = domain.ProposalRejected
	default:
		return nil
	}
	now := m.cfg.Now()
	p.ResolvedAt = &now
	snapshot := *p
	return &snapshot
}

// Get returns a snapshot of proposalID.
func (m *Manager) Get(proposalID string) (domain.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.proposals[proposalID]
	if !ok {
		return domain.Proposal{}, domain.Errorf(domain.ErrConsensusFailed, "proposal %q not found", proposalID)
	}
	return *p, nil
}

// GetActive returns every open proposal.
func (m *Manager) GetActive() []domain.Proposal {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Proposal
	for _, p := range m.proposals {
		if p.Status == domain.ProposalOpen {
			out = append(out, *p)
		}
	}
	return out
}

// Status summarizes the consensus manager for status reporting.
type Status struct {
	Open     int
	Accepted int
	Rejected int
	TimedOut int
}

// Status returns a tally of proposals by terminal state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	var s Status
	for _, p := range m.proposals {
		switch p.Status {
		case domain.ProposalOpen:
			s.Open++
		case domain.ProposalAccepted:
			s.Accepted++
		case domain.ProposalRejected:
			s.Rejected++
		case domain.ProposalTimedOut:
			s.TimedOut++
		}
	}
	return s
}

// Run starts the timeout sweep in the background and returns at once;
// the sweep runs until ctx is cancelled or Stop is called.
func (m *Manager) Run(ctx interface{ Done() <-chan struct{} }) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.sweepExpired()
			}
		}
	}()
}

func (m *Manager) sweepExpired() {
	now := m.cfg.Now()
	m.mu.Lock()
	var expired []domain.Proposal
	for _, p := range m.proposals {
		if p.Status != domain.ProposalOpen {
			continue
		}
		if now.Sub(p.CreatedAt) < m.cfg.VotingTimeout {
			continue
		}
		p.Status = domain.ProposalTimedOut
		p.ResolvedAt = &now
		expired = append(expired, *p)
	}
	m.mu.Unlock()

	if m.bus != nil {
		for _, p := range expired {
			m.bus.Publish(eventbus.ConsensusReached, p)
		}
	}
}

// Stop halts the timeout sweep. Safe to call more than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()
}
