package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voting-ledger/clock"
	"voting-ledger/fault"
	"voting-ledger/models"
	"voting-ledger/service"
	"voting-ledger/storage"
	"voting-ledger/storage/mocks"
	"voting-ledger/testutil"
)

func TestMain(m *testing.M) {
	os.Exit(testutil.RunWithLogger(m, "service"))
}

var start = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	sync.Mutex
	sent []models.VoterView
}

func (n *recordingNotifier) SendVoterID(_ *models.Campaign, voter models.VoterView) error {
	n.Lock()
	defer n.Unlock()
	n.sent = append(n.sent, voter)
	return nil
}

func testConfig(clk clock.Clock) service.Config {
	return service.Config{
		Difficulty:           2,
		CredentialIterations: 1000,
		NodeIdentifier:       "node0",
		Clock:                clk,
	}
}

func newService(t *testing.T, clk clock.Clock) *service.VotingService {
	store, err := storage.NewJSONStore(t.TempDir())
	require.NoError(t, err)

	vs, err := service.NewVotingService(store, testConfig(clk))
	require.NoError(t, err)
	t.Cleanup(func() { vs.Close() })
	return vs
}

func register(t *testing.T, vs *service.VotingService, campaignID uint64, voterIDs ...string) {
	for _, id := range voterIDs {
		_, err := vs.RegisterVoter(campaignID, id, "Voter "+id, id+"@example.com", "pw-"+id)
		require.NoError(t, err)
	}
}

func vote(t *testing.T, vs *service.VotingService, campaignID uint64, voterID string, candidate string) uint64 {
	index, err := vs.CastVote(campaignID, voterID, candidate, "pw-"+voterID)
	require.NoError(t, err)
	return index
}

func TestGenesisOnEmptyStore(t *testing.T) {
	vs := newService(t, clock.NewManual(start))

	blocks := vs.FullChain()
	require.Len(t, blocks, 1)
	assert.Equal(t, uint64(0), blocks[0].Index)
	assert.Equal(t, models.GenesisProof, blocks[0].Proof)
	assert.Equal(t, models.GenesisPreviousHash, blocks[0].PreviousHash)
	assert.True(t, vs.ValidateChain().Valid)
}

func TestBoardElection(t *testing.T) {
	vs := newService(t, clock.NewManual(start))

	campaign, err := vs.CreateCampaign("Board Election", []string{"Alice", "Bob", "Carol"}, 24)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), campaign.ID)
	assert.True(t, campaign.IsActive)

	register(t, vs, campaign.ID, "v1", "v2", "v3", "v4", "v5")

	for voter, candidate := range map[string]string{"v1": "Alice", "v2": "Alice", "v3": "Bob", "v4": "Alice", "v5": "Carol"} {
		assert.Equal(t, uint64(1), vote(t, vs, campaign.ID, voter, candidate))
	}

	before, err := vs.Tally(campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, before.TotalVotes)
	assert.Empty(t, before.Winners)

	block, err := vs.Mine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), block.Index)
	require.Len(t, block.Transactions, 6)
	assert.True(t, block.Transactions[0].IsReward())
	assert.Equal(t, "node0", block.Transactions[0].Candidate)

	results, err := vs.Tally(campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Alice": 3, "Bob": 1, "Carol": 1}, results.Counts)
	assert.Equal(t, 5, results.TotalVotes)
	assert.Equal(t, []string{"Alice"}, results.Winners)
	assert.Equal(t, 2, results.ChainLength)

	again, err := vs.Tally(campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, results, again)

	status, err := vs.VoterStatus(campaign.ID, "v1")
	require.NoError(t, err)
	assert.Equal(t, models.AlreadyVoted, status)
	assert.Equal(t, 0, vs.PendingCount())
	assert.True(t, vs.ValidateChain().Valid)
}

func TestTieGivesCoWinners(t *testing.T) {
	vs := newService(t, clock.NewManual(start))

	campaign, err := vs.CreateCampaign("Tie", []string{"Yes", "No", "Abstain"}, 1)
	require.NoError(t, err)

	register(t, vs, campaign.ID, "a", "b", "c", "d", "e", "f")
	for _, id := range []string{"a", "b", "c"} {
		vote(t, vs, campaign.ID, id, "No")
	}
	for _, id := range []string{"d", "e", "f"} {
		vote(t, vs, campaign.ID, id, "Yes")
	}
	_, err = vs.Mine(context.Background())
	require.NoError(t, err)

	results, err := vs.Tally(campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Yes", "No"}, results.Winners)
	assert.Equal(t, 0, results.Counts["Abstain"])
}

func TestEmptyPoolMineLeavesTalliesUnchanged(t *testing.T) {
	vs := newService(t, clock.NewManual(start))

	campaign, err := vs.CreateCampaign("Quiet", []string{"A", "B"}, 1)
	require.NoError(t, err)
	register(t, vs, campaign.ID, "v1")
	vote(t, vs, campaign.ID, "v1", "B")
	_, err = vs.Mine(context.Background())
	require.NoError(t, err)

	before, err := vs.Tally(campaign.ID)
	require.NoError(t, err)

	block, err := vs.Mine(context.Background())
	require.NoError(t, err)
	require.Len(t, block.Transactions, 1)
	assert.Equal(t, models.RewardVoterID, block.Transactions[0].VoterID)

	after, err := vs.Tally(campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Counts, after.Counts)
	assert.Equal(t, before.Winners, after.Winners)
	assert.Equal(t, 3, after.ChainLength)
}

func TestVotesAcrossCampaignsAreSeparated(t *testing.T) {
	vs := newService(t, clock.NewManual(start))

	first, err := vs.CreateCampaign("First", []string{"A", "B"}, 1)
	require.NoError(t, err)
	second, err := vs.CreateCampaign("Second", []string{"A", "B"}, 1)
	require.NoError(t, err)

	register(t, vs, first.ID, "v1")
	register(t, vs, second.ID, "v1")
	vote(t, vs, first.ID, "v1", "A")
	vote(t, vs, second.ID, "v1", "B")
	_, err = vs.Mine(context.Background())
	require.NoError(t, err)

	r1, err := vs.Tally(first.ID)
	require.NoError(t, err)
	r2, err := vs.Tally(second.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, r1.Winners)
	assert.Equal(t, []string{"B"}, r2.Winners)
}

func TestCastVoteRejections(t *testing.T) {
	clk := clock.NewManual(start)
	vs := newService(t, clk)

	campaign, err := vs.CreateCampaign("Board", []string{"Alice", "Bob"}, 2)
	require.NoError(t, err)
	register(t, vs, campaign.ID, "v1")

	_, err = vs.CastVote(99, "v1", "Alice", "pw-v1")
	assert.True(t, fault.IsErrNotFound(err))

	_, err = vs.CastVote(campaign.ID, "v1", "Mallory", "pw-v1")
	assert.True(t, fault.IsErrValidation(err))

	_, err = vs.CastVote(campaign.ID, "", "Alice", "pw-v1")
	assert.True(t, fault.IsErrValidation(err))

	_, err = vs.CastVote(campaign.ID, "nobody", "Alice", "pw")
	assert.True(t, fault.IsErrNotFound(err))

	_, err = vs.CastVote(campaign.ID, "v1", "Alice", "wrong")
	assert.True(t, fault.IsErrUnauthorized(err))

	vote(t, vs, campaign.ID, "v1", "Alice")
	_, err = vs.CastVote(campaign.ID, "v1", "Bob", "pw-v1")
	assert.Equal(t, fault.ErrAlreadyVoted, err)

	clk.Advance(3 * time.Hour)
	_, err = vs.CastVote(campaign.ID, "v1", "Alice", "pw-v1")
	assert.True(t, fault.IsErrClosed(err))

	_, err = vs.RegisterVoter(campaign.ID, "late", "Late", "late@example.com", "pw")
	assert.True(t, fault.IsErrClosed(err))

	metrics := vs.Status().Metrics
	assert.Equal(t, 1, metrics.Voting.Count)
	assert.Equal(t, 3, metrics.RejectedVotes)
	assert.Equal(t, 1, vs.PendingCount())
}

func TestConcurrentDoubleVoteAcceptsOne(t *testing.T) {
	vs := newService(t, clock.NewManual(start))

	campaign, err := vs.CreateCampaign("Race", []string{"A", "B"}, 1)
	require.NoError(t, err)
	register(t, vs, campaign.ID, "v1")

	const attempts = 16
	var (
		accepted  atomic.Int32
		conflicts atomic.Int32
		wg        sync.WaitGroup
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			candidate := "A"
			if i%2 == 1 {
				candidate = "B"
			}
			_, err := vs.CastVote(campaign.ID, "v1", candidate, "pw-v1")
			switch {
			case err == nil:
				accepted.Add(1)
			case fault.IsErrConflict(err):
				conflicts.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), accepted.Load())
	assert.Equal(t, int32(attempts-1), conflicts.Load())
	assert.Equal(t, 1, vs.PendingCount())

	_, err = vs.Mine(context.Background())
	require.NoError(t, err)
	results, err := vs.Tally(campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, results.TotalVotes)
}

func TestConcurrentVotingAndMining(t *testing.T) {
	vs := newService(t, clock.NewManual(start))

	campaign, err := vs.CreateCampaign("Busy", []string{"A", "B"}, 1)
	require.NoError(t, err)

	voters := []string{"v0", "v1", "v2", "v3", "v4", "v5", "v6", "v7", "v8", "v9"}
	register(t, vs, campaign.ID, voters...)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		expected = map[string]uint64{}
	)
	for _, id := range voters {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			index, err := vs.CastVote(campaign.ID, id, "A", "pw-"+id)
			assert.NoError(t, err)
			mu.Lock()
			expected[id] = index
			mu.Unlock()
		}(id)
	}
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := vs.Mine(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	_, err = vs.Mine(context.Background())
	require.NoError(t, err)

	results, err := vs.Tally(campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, len(voters), results.Counts["A"])
	assert.Equal(t, 0, vs.PendingCount())
	assert.True(t, vs.ValidateChain().Valid)

	// a vote is never sealed before the block it was promised
	for _, block := range vs.FullChain() {
		for _, tx := range block.Transactions {
			if tx.IsReward() {
				continue
			}
			assert.LessOrEqual(t, expected[tx.VoterID], block.Index, tx.VoterID)
		}
	}
}

func TestSealedVoteSurvivesPendingWriteFailure(t *testing.T) {
	dir := t.TempDir()
	clk := clock.NewManual(start)

	store, err := storage.NewJSONStore(dir)
	require.NoError(t, err)
	vs, err := service.NewVotingService(store, testConfig(clk))
	require.NoError(t, err)

	campaign, err := vs.CreateCampaign("Board", []string{"A", "B"}, 1)
	require.NoError(t, err)
	register(t, vs, campaign.ID, "v1")
	vote(t, vs, campaign.ID, "v1", "A")

	blocked := filepath.Join(dir, "pending.json.tmp")
	require.NoError(t, os.Mkdir(blocked, 0755))
	block, err := vs.Mine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), block.Index)
	require.NoError(t, os.Remove(blocked))

	block, err = vs.Mine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), block.Index)
	require.NoError(t, vs.Close())

	store, err = storage.NewJSONStore(dir)
	require.NoError(t, err)
	vs, err = service.NewVotingService(store, testConfig(clk))
	require.NoError(t, err)
	defer vs.Close()

	assert.Len(t, vs.FullChain(), 3)
	assert.True(t, vs.ValidateChain().Valid)
	assert.Equal(t, 0, vs.PendingCount())

	results, err := vs.Tally(campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"A": 1, "B": 0}, results.Counts)
}

func TestRegisterVoter(t *testing.T) {
	vs := newService(t, clock.NewManual(start))

	_, err := vs.RegisterVoter(7, "v1", "Ann", "ann@example.com", "pw")
	assert.True(t, fault.IsErrNotFound(err))

	campaign, err := vs.CreateCampaign("Board", []string{"A"}, 1)
	require.NoError(t, err)

	view, err := vs.RegisterVoter(campaign.ID, "v1", "Ann", "ann@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "v1", view.VoterID)
	assert.False(t, view.HasVoted)

	_, err = vs.RegisterVoter(campaign.ID, "v1", "Ann", "ann@example.com", "pw")
	assert.Equal(t, fault.ErrDuplicateVoter, err)

	status, err := vs.VoterStatus(campaign.ID, "v1")
	require.NoError(t, err)
	assert.Equal(t, models.CanVote, status)

	status, err = vs.VoterStatus(campaign.ID, "v2")
	require.NoError(t, err)
	assert.Equal(t, models.Unregistered, status)

	_, err = vs.VoterStatus(42, "v1")
	assert.True(t, fault.IsErrNotFound(err))
}

func TestRegisteredUsers(t *testing.T) {
	vs := newService(t, clock.NewManual(start))

	first, err := vs.CreateCampaign("First", []string{"A", "B"}, 1)
	require.NoError(t, err)
	_, err = vs.CreateCampaign("Empty", []string{"A"}, 1)
	require.NoError(t, err)

	register(t, vs, first.ID, "v1", "v2")
	vote(t, vs, first.ID, "v2", "B")

	users := vs.RegisteredUsers()
	require.Len(t, users, 2)
	assert.Equal(t, "First", users[0].CampaignName)
	assert.Equal(t, 2, users[0].RegisteredCount)
	assert.Equal(t, 1, users[0].VotedCount)
	assert.Equal(t, "v1", users[0].Voters[0].VoterID)
	assert.False(t, users[0].Voters[0].HasVoted)
	assert.True(t, users[0].Voters[1].HasVoted)

	assert.Equal(t, 0, users[1].RegisteredCount)
	assert.Empty(t, users[1].Voters)
}

func TestRetrieveVoterID(t *testing.T) {
	store, err := storage.NewJSONStore(t.TempDir())
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	config := testConfig(clock.NewManual(start))
	config.Notifier = notifier
	vs, err := service.NewVotingService(store, config)
	require.NoError(t, err)
	defer vs.Close()

	campaign, err := vs.CreateCampaign("Board", []string{"A"}, 1)
	require.NoError(t, err)
	register(t, vs, campaign.ID, "v1")

	message, err := vs.RetrieveVoterID(campaign.ID, "V1@Example.com")
	require.NoError(t, err)
	assert.Equal(t, service.RetrievalMessage, message)

	unknown, err := vs.RetrieveVoterID(campaign.ID, "nobody@example.com")
	require.NoError(t, err)
	assert.Equal(t, message, unknown)

	missing, err := vs.RetrieveVoterID(99, "v1@example.com")
	require.NoError(t, err)
	assert.Equal(t, message, missing)

	_, err = vs.RetrieveVoterID(campaign.ID, " ")
	assert.True(t, fault.IsErrValidation(err))

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "v1", notifier.sent[0].VoterID)
}

func TestStatus(t *testing.T) {
	vs := newService(t, clock.NewManual(start))

	campaign, err := vs.CreateCampaign("Board", []string{"A"}, 1)
	require.NoError(t, err)
	register(t, vs, campaign.ID, "v1")
	vote(t, vs, campaign.ID, "v1", "A")

	status := vs.Status()
	assert.Equal(t, "node0", status.NodeIdentifier)
	assert.Equal(t, 1, status.ChainLength)
	assert.Equal(t, 1, status.Pending)
	assert.Equal(t, 2, status.Difficulty)
	assert.Equal(t, 1, status.Metrics.Registration.Count)

	_, err = vs.Mine(context.Background())
	require.NoError(t, err)

	status = vs.Status()
	assert.Equal(t, 2, status.ChainLength)
	assert.Equal(t, 0, status.Pending)
	assert.Equal(t, 1, status.Metrics.Mining.BlocksMined)
}

func TestStateSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	clk := clock.NewManual(start)

	open := func() (storage.Store, *service.VotingService) {
		store, err := storage.Open(storage.Options{Type: storage.TypeSQLite, Directory: dir})
		require.NoError(t, err)
		vs, err := service.NewVotingService(store, testConfig(clk))
		require.NoError(t, err)
		return store, vs
	}

	_, vs := open()
	campaign, err := vs.CreateCampaign("Board", []string{"A", "B"}, 1)
	require.NoError(t, err)
	register(t, vs, campaign.ID, "v1", "v2")
	vote(t, vs, campaign.ID, "v1", "A")
	_, err = vs.Mine(context.Background())
	require.NoError(t, err)
	vote(t, vs, campaign.ID, "v2", "B")
	require.NoError(t, vs.Close())

	_, vs = open()
	assert.Equal(t, 2, len(vs.FullChain()))
	assert.Equal(t, 1, vs.PendingCount())

	status, err := vs.VoterStatus(campaign.ID, "v2")
	require.NoError(t, err)
	assert.Equal(t, models.AlreadyVoted, status)

	_, err = vs.CastVote(campaign.ID, "v1", "B", "pw-v1")
	assert.Equal(t, fault.ErrAlreadyVoted, err)

	_, err = vs.Mine(context.Background())
	require.NoError(t, err)
	results, err := vs.Tally(campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"A": 1, "B": 1}, results.Counts)
	require.NoError(t, vs.Close())
}

func TestRestartReconcilesInterruptedWrites(t *testing.T) {
	dir := t.TempDir()
	clk := clock.NewManual(start)

	store, err := storage.NewJSONStore(dir)
	require.NoError(t, err)
	vs, err := service.NewVotingService(store, testConfig(clk))
	require.NoError(t, err)

	campaign, err := vs.CreateCampaign("Board", []string{"A", "B"}, 1)
	require.NoError(t, err)
	register(t, vs, campaign.ID, "sealed", "pending")
	vote(t, vs, campaign.ID, "sealed", "A")
	_, err = vs.Mine(context.Background())
	require.NoError(t, err)
	require.NoError(t, vs.Close())

	// leave behind a sealed vote still listed as pending, and a pending
	// vote whose voter was never marked
	store, err = storage.NewJSONStore(dir)
	require.NoError(t, err)
	voters, err := store.LoadVoters()
	require.NoError(t, err)
	require.Len(t, voters, 2)
	for _, v := range voters {
		unmarked := v.Copy()
		unmarked.HasVoted = false
		require.NoError(t, store.SaveVote(unmarked, models.PendingTransaction{
			Sequence:    uint64(len(v.VoterID)),
			Transaction: models.Transaction{CampaignID: campaign.ID, Candidate: "B", VoterID: v.VoterID},
		}))
	}
	require.NoError(t, store.Close())

	store, err = storage.NewJSONStore(dir)
	require.NoError(t, err)
	vs, err = service.NewVotingService(store, testConfig(clk))
	require.NoError(t, err)
	defer vs.Close()

	assert.Equal(t, 1, vs.PendingCount())
	for _, id := range []string{"sealed", "pending"} {
		status, err := vs.VoterStatus(campaign.ID, id)
		require.NoError(t, err)
		assert.Equal(t, models.AlreadyVoted, status, id)
	}

	persisted, err := store.LoadVoters()
	require.NoError(t, err)
	for _, v := range persisted {
		assert.True(t, v.HasVoted, v.VoterID)
	}

	_, err = vs.Mine(context.Background())
	require.NoError(t, err)
	results, err := vs.Tally(campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"A": 1, "B": 1}, results.Counts)
}

func TestInvalidStoredChainIsRejected(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	genesis := models.NewGenesisBlock(clock.Timestamp(start))
	forged := models.NewBlock(1, clock.Timestamp(start), nil, 1, genesis.Hash())

	store := mocks.NewMockStore(ctl)
	store.EXPECT().LoadCampaigns().Return(nil, nil)
	store.EXPECT().LoadVoters().Return(nil, nil)
	store.EXPECT().LoadChain().Return([]*models.Block{genesis, forged}, nil)
	store.EXPECT().LoadPending().Return(nil, nil)

	config := testConfig(clock.NewManual(start))
	config.Difficulty = 6
	_, err := service.NewVotingService(store, config)
	require.Error(t, err)
	assert.True(t, fault.IsErrIntegrity(err))
}

func TestVoteStoreFailureLeavesVoterUnmarked(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	store := mocks.NewMockStore(ctl)
	store.EXPECT().LoadCampaigns().Return(nil, nil)
	store.EXPECT().LoadVoters().Return(nil, nil)
	store.EXPECT().LoadChain().Return(nil, nil)
	store.EXPECT().LoadPending().Return(nil, nil)
	store.EXPECT().SaveBlock(gomock.Any()).Return(nil).AnyTimes()
	store.EXPECT().SaveCampaign(gomock.Any()).Return(nil)
	store.EXPECT().SaveVoter(gomock.Any()).Return(nil)
	gomock.InOrder(
		store.EXPECT().SaveVote(gomock.Any(), gomock.Any()).Return(errors.New("disk full")),
		store.EXPECT().SaveVote(gomock.Any(), gomock.Any()).Return(nil),
	)

	vs, err := service.NewVotingService(store, testConfig(clock.NewManual(start)))
	require.NoError(t, err)

	campaign, err := vs.CreateCampaign("Board", []string{"A"}, 1)
	require.NoError(t, err)
	register(t, vs, campaign.ID, "v1")

	_, err = vs.CastVote(campaign.ID, "v1", "A", "pw-v1")
	require.Error(t, err)
	assert.False(t, fault.IsErrConflict(err))

	status, err := vs.VoterStatus(campaign.ID, "v1")
	require.NoError(t, err)
	assert.Equal(t, models.CanVote, status)
	assert.Equal(t, 0, vs.PendingCount())

	assert.Equal(t, uint64(1), vote(t, vs, campaign.ID, "v1", "A"))
	assert.Equal(t, 1, vs.PendingCount())
}

func TestInvalidDifficulty(t *testing.T) {
	store, err := storage.NewJSONStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	config := testConfig(clock.NewManual(start))
	config.Difficulty = models.MaxDifficulty + 1
	_, err = service.NewVotingService(store, config)
	assert.Equal(t, fault.ErrInvalidDifficulty, err)
}
