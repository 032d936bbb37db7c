package consensus

import (
	"testing"
	"time"

	"github.com/tutu-network/swarmd/internal/domain"
	"github.com/tutu-network/swarmd/internal/eventbus"
	"github.com/tutu-network/swarmd/internal/infra/registry"
)

func newTestManager(now time.Time, memberCount int) *Manager {
	bus := eventbus.New()
	regCfg := registry.DefaultConfig()
	regCfg.Now = func() time.Time { return now }
	reg := registry.New(regCfg, bus)
	for i := 0; i < memberCount; i++ {
		reg.Register(domain.AgentRecord{
			Identity: domain.AgentIdentity{ID: string(rune('a' + i)), Kind: domain.CodeWorker},
			Status:   domain.StatusIdle,
		})
	}

	cfg := DefaultConfig()
	cfg.Now = func() time.Time { return now }
	return New(cfg, reg, bus)
}

func TestProposeFreezesRequiredVotes(t *testing.T) {
	p := newTestManager(time.Now(), 5).Propose("upgrade", "a", nil)
	if p.RequiredVotes != 3 {
		t.Fatalf("RequiredVotes = %d, want 3 for 5 members", p.RequiredVotes)
	}
}

func TestVoteReachesAcceptance(t *testing.T) {
	m := newTestManager(time.Now(), 3)
	p := m.Propose("upgrade", "a", nil)

	m.Vote(p.ID, "a", domain.VoteYes, "")
	got, _ := m.Get(p.ID)
	if got.Status != domain.ProposalOpen {
		t.Fatalf("Status = %v, want still Open after 1/2 votes", got.Status)
	}

	m.Vote(p.ID, "b", domain.VoteYes, "")
	got, _ = m.Get(p.ID)
	if got.Status != domain.ProposalAccepted {
		t.Fatalf("Status = %v, want Accepted once quorum reached", got.Status)
	}
}

func TestVoteReachesRejectionByNo(t *testing.T) {
	m := newTestManager(time.Now(), 3)
	p := m.Propose("upgrade", "a", nil)
	m.Vote(p.ID, "a", domain.VoteNo, "")
	m.Vote(p.ID, "b", domain.VoteNo, "")

	got, _ := m.Get(p.ID)
	if got.Status != domain.ProposalRejected {
		t.Fatalf("Status = %v, want Rejected", got.Status)
	}
}

func TestVoteReachesRejectionByExhaustion(t *testing.T) {
	// 4 members: quorum is 3, so a 2/2 split reaches neither quorum and
	// is rejected only because every member has voted.
	m := newTestManager(time.Now(), 4)
	p := m.Propose("upgrade", "a", nil)
	m.Vote(p.ID, "a", domain.VoteYes, "")
	m.Vote(p.ID, "b", domain.VoteYes, "")
	m.Vote(p.ID, "c", domain.VoteNo, "")
	m.Vote(p.ID, "d", domain.VoteNo, "")

	got, _ := m.Get(p.ID)
	if got.Status != domain.ProposalRejected {
		t.Fatalf("Status = %v, want Rejected once every member has voted without quorum", got.Status)
	}
}

func TestDuplicateVoteIsDropped(t *testing.T) {
	m := newTestManager(time.Now(), 5)
	p := m.Propose("upgrade", "a", nil)
	if err := m.Vote(p.ID, "a", domain.VoteYes, ""); err != nil {
		t.Fatalf("first vote: %v", err)
	}
	if err := m.Vote(p.ID, "a", domain.VoteNo, ""); err == nil {
		t.Fatal("expected error on a second vote from the same agent")
	}

	got, _ := m.Get(p.ID)
	yes, no := got.Tally()
	if yes != 1 || no != 0 {
		t.Fatalf("yes=%d no=%d, want yes=1 no=0: the duplicate vote must not overwrite the first", yes, no)
	}
}

func TestVoteOnResolvedProposalErrors(t *testing.T) {
	m := newTestManager(time.Now(), 3)
	p := m.Propose("upgrade", "a", nil)
	m.Vote(p.ID, "a", domain.VoteYes, "")
	m.Vote(p.ID, "b", domain.VoteYes, "")

	if err := m.Vote(p.ID, "c", domain.VoteYes, ""); err == nil {
		t.Fatal("expected error voting on a resolved proposal")
	}
}

func TestSweepExpiredTimesOutOpenProposals(t *testing.T) {
	now := time.Now()
	m := newTestManager(now, 5)
	p := m.Propose("upgrade", "a", nil)

	m.cfg.Now = func() time.Time { return now.Add(time.Minute) }
	m.sweepExpired()

	got, _ := m.Get(p.ID)
	if got.Status != domain.ProposalTimedOut {
		t.Fatalf("Status = %v, want TimedOut", got.Status)
	}
}
