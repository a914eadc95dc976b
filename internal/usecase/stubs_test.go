package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/riskibarqy/fpl-sync/internal/domain/entry"
	"github.com/riskibarqy/fpl-sync/internal/domain/fixture"
	"github.com/riskibarqy/fpl-sync/internal/domain/gameweek"
	"github.com/riskibarqy/fpl-sync/internal/domain/player"
	"github.com/riskibarqy/fpl-sync/internal/domain/playerstats"
	"github.com/riskibarqy/fpl-sync/internal/domain/syncstate"
	"github.com/riskibarqy/fpl-sync/internal/domain/team"
	"github.com/riskibarqy/fpl-sync/internal/domain/teamstats"
)

var errStub = errors.New("stub failure")

func intPtr(v int) *int { return &v }

// stubProvider lets each test wire only the fetches it cares about; the
// rest return zero values.
type stubProvider struct {
	bootstrap      ExternalBootstrap
	bootstrapErr   error
	fixtures       []ExternalFixture
	fixturesErr    error
	liveStats      map[int][]ExternalPlayerGameweekStat
	liveStatsErr   map[int]error
	entries        map[int64]ExternalEntry
	entryErr       map[int64]error
	histories      map[int64]ExternalEntryHistory
	historyErr     map[int64]error
	transfers      map[int64][]ExternalEntryTransfer
	transfersErr   map[int64]error
	picks          map[int64]ExternalEntryPicks
	picksErr       map[int64]error
	liveStatsCalls []int

	mu sync.Mutex
}

func (p *stubProvider) FetchBootstrap(context.Context) (ExternalBootstrap, error) {
	return p.bootstrap, p.bootstrapErr
}

func (p *stubProvider) FetchFixtures(context.Context) ([]ExternalFixture, error) {
	return p.fixtures, p.fixturesErr
}

func (p *stubProvider) FetchLiveStats(_ context.Context, gameweekID int) ([]ExternalPlayerGameweekStat, error) {
	p.mu.Lock()
	p.liveStatsCalls = append(p.liveStatsCalls, gameweekID)
	p.mu.Unlock()
	if err := p.liveStatsErr[gameweekID]; err != nil {
		return nil, err
	}
	return p.liveStats[gameweekID], nil
}

func (p *stubProvider) FetchEntry(_ context.Context, entryID int64) (ExternalEntry, error) {
	if err := p.entryErr[entryID]; err != nil {
		return ExternalEntry{}, err
	}
	return p.entries[entryID], nil
}

func (p *stubProvider) FetchEntryHistory(_ context.Context, entryID int64) (ExternalEntryHistory, error) {
	if err := p.historyErr[entryID]; err != nil {
		return ExternalEntryHistory{}, err
	}
	return p.histories[entryID], nil
}

func (p *stubProvider) FetchEntryTransfers(_ context.Context, entryID int64) ([]ExternalEntryTransfer, error) {
	if err := p.transfersErr[entryID]; err != nil {
		return nil, err
	}
	return p.transfers[entryID], nil
}

func (p *stubProvider) FetchEntryPicks(_ context.Context, entryID int64, _ int) (ExternalEntryPicks, error) {
	if err := p.picksErr[entryID]; err != nil {
		return ExternalEntryPicks{}, err
	}
	return p.picks[entryID], nil
}

type memTeamRepo struct {
	mu    sync.Mutex
	items map[int]team.Team
}

func newMemTeamRepo() *memTeamRepo {
	return &memTeamRepo{items: make(map[int]team.Team)}
}

func (r *memTeamRepo) List(context.Context) ([]team.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]team.Team, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, item)
	}
	return out, nil
}

func (r *memTeamRepo) Upsert(_ context.Context, items []team.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		r.items[item.ID] = item
	}
	return nil
}

type memPlayerRepo struct {
	mu    sync.Mutex
	items map[int]player.Player
}

func newMemPlayerRepo() *memPlayerRepo {
	return &memPlayerRepo{items: make(map[int]player.Player)}
}

func (r *memPlayerRepo) List(context.Context) ([]player.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]player.Player, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, item)
	}
	return out, nil
}

func (r *memPlayerRepo) Upsert(_ context.Context, items []player.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		r.items[item.ID] = item
	}
	return nil
}

type memGameweekRepo struct {
	mu    sync.Mutex
	items map[int]gameweek.Gameweek
}

func newMemGameweekRepo() *memGameweekRepo {
	return &memGameweekRepo{items: make(map[int]gameweek.Gameweek)}
}

func (r *memGameweekRepo) List(context.Context) ([]gameweek.Gameweek, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]gameweek.Gameweek, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, item)
	}
	return out, nil
}

func (r *memGameweekRepo) Upsert(_ context.Context, items []gameweek.Gameweek) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		r.items[item.ID] = item
	}
	return nil
}

type memFixtureRepo struct {
	mu    sync.Mutex
	items map[int]fixture.Fixture
}

func newMemFixtureRepo() *memFixtureRepo {
	return &memFixtureRepo{items: make(map[int]fixture.Fixture)}
}

func (r *memFixtureRepo) List(context.Context) ([]fixture.Fixture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]fixture.Fixture, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, item)
	}
	return out, nil
}

func (r *memFixtureRepo) ListByGameweek(_ context.Context, gameweekID int) ([]fixture.Fixture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]fixture.Fixture, 0)
	for _, item := range r.items {
		if item.GameweekID == gameweekID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *memFixtureRepo) Upsert(_ context.Context, items []fixture.Fixture) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		r.items[item.ID] = item
	}
	return nil
}

type playerStatKey struct {
	playerID   int
	gameweekID int
}

type memPlayerStatsRepo struct {
	mu    sync.Mutex
	items map[playerStatKey]playerstats.GameweekStat
}

func newMemPlayerStatsRepo() *memPlayerStatsRepo {
	return &memPlayerStatsRepo{items: make(map[playerStatKey]playerstats.GameweekStat)}
}

func (r *memPlayerStatsRepo) ListByGameweeks(_ context.Context, gameweekIDs []int) ([]playerstats.GameweekStat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	scope := make(map[int]bool, len(gameweekIDs))
	for _, id := range gameweekIDs {
		scope[id] = true
	}
	out := make([]playerstats.GameweekStat, 0)
	for _, item := range r.items {
		if scope[item.GameweekID] {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *memPlayerStatsRepo) ListGameweekIDs(context.Context) ([]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[int]bool)
	out := make([]int, 0)
	for key := range r.items {
		if !seen[key.gameweekID] {
			seen[key.gameweekID] = true
			out = append(out, key.gameweekID)
		}
	}
	return out, nil
}

func (r *memPlayerStatsRepo) Upsert(_ context.Context, items []playerstats.GameweekStat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		r.items[playerStatKey{item.PlayerID, item.GameweekID}] = item
	}
	return nil
}

type teamStatKey struct {
	teamID     int
	gameweekID int
}

type memTeamStatsRepo struct {
	mu    sync.Mutex
	items map[teamStatKey]teamstats.GameweekStat
}

func newMemTeamStatsRepo() *memTeamStatsRepo {
	return &memTeamStatsRepo{items: make(map[teamStatKey]teamstats.GameweekStat)}
}

func (r *memTeamStatsRepo) ListByTeam(_ context.Context, teamID int) ([]teamstats.GameweekStat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]teamstats.GameweekStat, 0)
	for _, item := range r.items {
		if item.TeamID == teamID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *memTeamStatsRepo) ListByGameweeks(_ context.Context, gameweekIDs []int) ([]teamstats.GameweekStat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	scope := make(map[int]bool, len(gameweekIDs))
	for _, id := range gameweekIDs {
		scope[id] = true
	}
	out := make([]teamstats.GameweekStat, 0)
	for _, item := range r.items {
		if scope[item.GameweekID] {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *memTeamStatsRepo) ReplaceByGameweek(_ context.Context, gameweekID int, rows []teamstats.GameweekStat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.items {
		if key.gameweekID == gameweekID {
			delete(r.items, key)
		}
	}
	for _, row := range rows {
		r.items[teamStatKey{row.TeamID, row.GameweekID}] = row
	}
	return nil
}

func (r *memTeamStatsRepo) get(teamID, gameweekID int) (teamstats.GameweekStat, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.items[teamStatKey{teamID, gameweekID}]
	return row, ok
}

type historyKey struct {
	entryID    int64
	gameweekID int
}

type memEntryRepo struct {
	mu        sync.Mutex
	entries   map[int64]entry.Entry
	history   map[historyKey]entry.GameweekHistory
	transfers map[entry.Transfer]bool
	summaries map[int64]entry.Summary
}

func newMemEntryRepo() *memEntryRepo {
	return &memEntryRepo{
		entries:   make(map[int64]entry.Entry),
		history:   make(map[historyKey]entry.GameweekHistory),
		transfers: make(map[entry.Transfer]bool),
		summaries: make(map[int64]entry.Summary),
	}
}

func (r *memEntryRepo) GetByID(_ context.Context, entryID int64) (entry.Entry, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.entries[entryID]
	return item, ok, nil
}

func (r *memEntryRepo) Upsert(_ context.Context, item entry.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[item.ID] = item
	return nil
}

func (r *memEntryRepo) UpdateSummary(_ context.Context, entryID int64, summary entry.Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries[entryID] = summary
	return nil
}

func (r *memEntryRepo) ListHistory(_ context.Context, entryID int64) ([]entry.GameweekHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entry.GameweekHistory, 0)
	for _, item := range r.history {
		if item.EntryID == entryID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *memEntryRepo) UpsertHistory(_ context.Context, items []entry.GameweekHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		r.history[historyKey{item.EntryID, item.GameweekID}] = item
	}
	return nil
}

func (r *memEntryRepo) UpsertTransfers(_ context.Context, items []entry.Transfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		r.transfers[item] = true
	}
	return nil
}

type memStateStore struct {
	mu      sync.Mutex
	fp      syncstate.Fingerprint
	loadErr error
	saveErr error
	saves   int
}

func (s *memStateStore) Load(context.Context) (syncstate.Fingerprint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return syncstate.Fingerprint{}, s.loadErr
	}
	return s.fp.Clone(), nil
}

func (s *memStateStore) Save(_ context.Context, fp syncstate.Fingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.fp = fp.Clone()
	s.saves++
	return nil
}

func (s *memStateStore) current() syncstate.Fingerprint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fp.Clone()
}
