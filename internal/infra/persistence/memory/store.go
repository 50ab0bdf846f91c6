// Package memory provides an in-memory implementation of the registry
// persistence store used for tests, ephemeral environments, and as the
// transactional engine behind the durable snapshot backends.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"idsearch/pkg/domain"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Center aliases domain.Center for in-memory persistence operations.
	Center = domain.Center
	// Participant aliases domain.Participant.
	Participant = domain.Participant
	// Alias aliases domain.Alias.
	Alias = domain.Alias
	// RutgersLCL aliases domain.RutgersLCL.
	RutgersLCL = domain.RutgersLCL
	// DNASample aliases domain.DNASample.
	DNASample = domain.DNASample
	// SerumSample aliases domain.SerumSample.
	SerumSample = domain.SerumSample
	// LocalDNASample aliases domain.LocalDNASample.
	LocalDNASample = domain.LocalDNASample
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	centers      map[string]Center
	participants map[string]Participant
	aliases      map[string]Alias
	lcls         map[string]RutgersLCL
	dnaSamples   map[string]DNASample
	serumSamples map[string]SerumSample
	localSamples map[string]LocalDNASample
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Centers         map[string]Center         `json:"centers"`
	Participants    map[string]Participant    `json:"participants"`
	Aliases         map[string]Alias          `json:"aliases"`
	LCLs            map[string]RutgersLCL     `json:"lcls"`
	DNASamples      map[string]DNASample      `json:"dna_samples"`
	SerumSamples    map[string]SerumSample    `json:"serum_samples"`
	LocalDNASamples map[string]LocalDNASample `json:"local_dna_samples"`
}

func newMemoryState() memoryState {
	return memoryState{
		centers:      make(map[string]Center),
		participants: make(map[string]Participant),
		aliases:      make(map[string]Alias),
		lcls:         make(map[string]RutgersLCL),
		dnaSamples:   make(map[string]DNASample),
		serumSamples: make(map[string]SerumSample),
		localSamples: make(map[string]LocalDNASample),
	}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Centers:         make(map[string]Center, len(state.centers)),
		Participants:    make(map[string]Participant, len(state.participants)),
		Aliases:         make(map[string]Alias, len(state.aliases)),
		LCLs:            make(map[string]RutgersLCL, len(state.lcls)),
		DNASamples:      make(map[string]DNASample, len(state.dnaSamples)),
		SerumSamples:    make(map[string]SerumSample, len(state.serumSamples)),
		LocalDNASamples: make(map[string]LocalDNASample, len(state.localSamples)),
	}
	for k, v := range state.centers {
		s.Centers[k] = v
	}
	for k, v := range state.participants {
		s.Participants[k] = cloneParticipant(v)
	}
	for k, v := range state.aliases {
		s.Aliases[k] = v
	}
	for k, v := range state.lcls {
		s.LCLs[k] = cloneLCL(v)
	}
	for k, v := range state.dnaSamples {
		s.DNASamples[k] = cloneDNASample(v)
	}
	for k, v := range state.serumSamples {
		s.SerumSamples[k] = cloneSerumSample(v)
	}
	for k, v := range state.localSamples {
		s.LocalDNASamples[k] = cloneLocalDNASample(v)
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for _, v := range s.Centers {
		state.centers[v.ID] = v
	}
	for _, v := range s.Participants {
		state.participants[v.ConsortiumID] = cloneParticipant(v)
	}
	for _, v := range s.Aliases {
		state.aliases[v.Alias] = v
	}
	for _, v := range s.LCLs {
		state.lcls[lclKey(v.NIDDKNo)] = cloneLCL(v)
	}
	for _, v := range s.DNASamples {
		state.dnaSamples[v.ID] = cloneDNASample(v)
	}
	for _, v := range s.SerumSamples {
		state.serumSamples[v.ID] = cloneSerumSample(v)
	}
	for _, v := range s.LocalDNASamples {
		state.localSamples[v.Key()] = cloneLocalDNASample(v)
	}
	return state
}

// migrateSnapshot fills buckets missing from older snapshots. Records are
// re-keyed from their own identifiers when the state is rebuilt.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Centers == nil {
		snapshot.Centers = map[string]Center{}
	}
	if snapshot.Participants == nil {
		snapshot.Participants = map[string]Participant{}
	}
	if snapshot.Aliases == nil {
		snapshot.Aliases = map[string]Alias{}
	}
	if snapshot.LCLs == nil {
		snapshot.LCLs = map[string]RutgersLCL{}
	}
	if snapshot.DNASamples == nil {
		snapshot.DNASamples = map[string]DNASample{}
	}
	if snapshot.SerumSamples == nil {
		snapshot.SerumSamples = map[string]SerumSample{}
	}
	if snapshot.LocalDNASamples == nil {
		snapshot.LocalDNASamples = map[string]LocalDNASample{}
	}
	return snapshot
}

func (s memoryState) clone() memoryState {
	return memoryStateFromSnapshot(snapshotFromMemoryState(s))
}

func lclKey(niddkNo int) string { return strconv.Itoa(niddkNo) }

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

func cloneParticipant(p Participant) Participant {
	cp := p
	cp.FamInd = clonePtr(p.FamInd)
	cp.Father = clonePtr(p.Father)
	cp.Mother = clonePtr(p.Mother)
	cp.Spouse = clonePtr(p.Spouse)
	cp.PublicID = clonePtr(p.PublicID)
	cp.PublicFamilyID = clonePtr(p.PublicFamilyID)
	cp.LocalID = clonePtr(p.LocalID)
	cp.PedInd = clonePtr(p.PedInd)
	cp.RegistrationDate = clonePtr(p.RegistrationDate)
	cp.YOB = clonePtr(p.YOB)
	cp.Sex = clonePtr(p.Sex)
	cp.Affection = clonePtr(p.Affection)
	cp.Diagnosis = clonePtr(p.Diagnosis)
	cp.Control = clonePtr(p.Control)
	return cp
}

func cloneLCL(l RutgersLCL) RutgersLCL {
	cp := l
	cp.KNumber = clonePtr(l.KNumber)
	cp.DateCollected = clonePtr(l.DateCollected)
	return cp
}

func cloneDNASample(d DNASample) DNASample {
	cp := d
	cp.DateCollected = clonePtr(d.DateCollected)
	return cp
}

func cloneSerumSample(d SerumSample) SerumSample {
	cp := d
	cp.DateCollected = clonePtr(d.DateCollected)
	return cp
}

func cloneLocalDNASample(d LocalDNASample) LocalDNASample {
	cp := d
	cp.DateCollected = clonePtr(d.DateCollected)
	return cp
}

// Store provides an in-memory transactional store for the registry.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	return uuid.NewString()
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// SetNowFunc overrides the clock used to stamp records.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn != nil {
		s.nowFn = fn
	}
}

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// ListCenters returns all centers ordered by name.
func (v transactionView) ListCenters() []Center {
	out := make([]Center, 0, len(v.state.centers))
	for _, c := range v.state.centers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// FindCenter retrieves a center by ID.
func (v transactionView) FindCenter(id string) (Center, bool) {
	c, ok := v.state.centers[id]
	return c, ok
}

// FindCenterByName returns the first center, in name order, with the given name.
func (v transactionView) FindCenterByName(name string) (Center, bool) {
	for _, c := range v.ListCenters() {
		if c.Name == name {
			return c, true
		}
	}
	return Center{}, false
}

// ListParticipants returns all participants ordered by consortium ID.
func (v transactionView) ListParticipants() []Participant {
	out := make([]Participant, 0, len(v.state.participants))
	for _, p := range v.state.participants {
		out = append(out, cloneParticipant(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConsortiumID < out[j].ConsortiumID })
	return out
}

// FindParticipant retrieves a participant by consortium ID.
func (v transactionView) FindParticipant(consortiumID string) (Participant, bool) {
	p, ok := v.state.participants[consortiumID]
	if !ok {
		return Participant{}, false
	}
	return cloneParticipant(p), true
}

// ListAliases returns all aliases ordered by value.
func (v transactionView) ListAliases() []Alias {
	out := make([]Alias, 0, len(v.state.aliases))
	for _, a := range v.state.aliases {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Alias < out[j].Alias })
	return out
}

// FindAlias retrieves an alias record by value.
func (v transactionView) FindAlias(alias string) (Alias, bool) {
	a, ok := v.state.aliases[alias]
	return a, ok
}

// ListLCLs returns all cell line records ordered by NIDDK number.
func (v transactionView) ListLCLs() []RutgersLCL {
	out := make([]RutgersLCL, 0, len(v.state.lcls))
	for _, l := range v.state.lcls {
		out = append(out, cloneLCL(l))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NIDDKNo < out[j].NIDDKNo })
	return out
}

// ListDNASamples returns all repository DNA samples.
func (v transactionView) ListDNASamples() []DNASample {
	out := make([]DNASample, 0, len(v.state.dnaSamples))
	for _, d := range v.state.dnaSamples {
		out = append(out, cloneDNASample(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListSerumSamples returns all repository serum samples.
func (v transactionView) ListSerumSamples() []SerumSample {
	out := make([]SerumSample, 0, len(v.state.serumSamples))
	for _, d := range v.state.serumSamples {
		out = append(out, cloneSerumSample(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListLocalDNASamples returns all center-held DNA samples.
func (v transactionView) ListLocalDNASamples() []LocalDNASample {
	out := make([]LocalDNASample, 0, len(v.state.localSamples))
	for _, d := range v.state.localSamples {
		out = append(out, cloneLocalDNASample(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Holdings collects every record owned by the participant.
func (v transactionView) Holdings(consortiumID string) domain.Holdings {
	return holdingsOf(v.state, consortiumID)
}

// Match evaluates an equality query against the snapshot.
func (v transactionView) Match(q domain.Query) []domain.Record {
	return matchState(v.state, q)
}

func holdingsOf(state *memoryState, consortiumID string) domain.Holdings {
	var h domain.Holdings
	for _, a := range state.aliases {
		if a.ConsortiumID == consortiumID {
			h.Aliases = append(h.Aliases, a)
		}
	}
	for _, l := range state.lcls {
		if l.ConsortiumID == consortiumID {
			h.LCLs = append(h.LCLs, cloneLCL(l))
		}
	}
	for _, d := range state.dnaSamples {
		if d.ConsortiumID == consortiumID {
			h.DNASamples = append(h.DNASamples, cloneDNASample(d))
		}
	}
	for _, d := range state.serumSamples {
		if d.ConsortiumID == consortiumID {
			h.SerumSamples = append(h.SerumSamples, cloneSerumSample(d))
		}
	}
	for _, d := range state.localSamples {
		if d.ConsortiumID == consortiumID {
			h.LocalDNASamples = append(h.LocalDNASamples, cloneLocalDNASample(d))
		}
	}
	sort.Slice(h.Aliases, func(i, j int) bool { return h.Aliases[i].Alias < h.Aliases[j].Alias })
	sort.Slice(h.LCLs, func(i, j int) bool { return h.LCLs[i].NIDDKNo < h.LCLs[j].NIDDKNo })
	sort.Slice(h.DNASamples, func(i, j int) bool { return h.DNASamples[i].ID < h.DNASamples[j].ID })
	sort.Slice(h.SerumSamples, func(i, j int) bool { return h.SerumSamples[i].ID < h.SerumSamples[j].ID })
	sort.Slice(h.LocalDNASamples, func(i, j int) bool { return h.LocalDNASamples[i].Key() < h.LocalDNASamples[j].Key() })
	return h
}

// RunInTransaction executes fn within a transactional copy of the store state.
// The copy replaces committed state only when fn succeeds and no rule blocks.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	return s.RunInTransactionWithCommit(ctx, fn, nil)
}

// CommitFunc receives the state a transaction is about to commit. Returning an
// error discards the transaction.
type CommitFunc func(ctx context.Context, snapshot Snapshot) error

// RunInTransactionWithCommit is RunInTransaction with a hook that runs under the
// store lock after the rules pass and before the new state becomes visible.
func (s *Store) RunInTransactionWithCommit(ctx context.Context, fn func(tx Transaction) error, commit CommitFunc) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	if commit != nil {
		if err := commit(ctx, snapshotFromMemoryState(tx.state)); err != nil {
			return result, err
		}
	}
	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// committed maps are replaced on commit, never mutated in place
	snapshot := s.state
	view := newTransactionView(&snapshot)
	return fn(view)
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// FindCenter exposes center lookup within the transaction scope.
func (tx *transaction) FindCenter(id string) (Center, bool) {
	c, ok := tx.state.centers[id]
	return c, ok
}

// FindParticipant exposes participant lookup within the transaction scope.
func (tx *transaction) FindParticipant(consortiumID string) (Participant, bool) {
	p, ok := tx.state.participants[consortiumID]
	if !ok {
		return Participant{}, false
	}
	return cloneParticipant(p), true
}

// FindAlias exposes alias lookup within the transaction scope.
func (tx *transaction) FindAlias(alias string) (Alias, bool) {
	a, ok := tx.state.aliases[alias]
	return a, ok
}

// CreateCenter stores a new center.
func (tx *transaction) CreateCenter(c Center) (Center, error) {
	if c.ID == "" {
		c.ID = tx.store.newID()
	}
	if _, exists := tx.state.centers[c.ID]; exists {
		return Center{}, domain.NewConflictError(domain.EntityCenter, c.ID, "already exists")
	}
	tx.state.centers[c.ID] = c
	tx.recordChange(Change{Entity: domain.EntityCenter, Action: domain.ActionCreate, After: c})
	return c, nil
}

// CreateParticipant stores a new participant within the transaction.
func (tx *transaction) CreateParticipant(p Participant) (Participant, error) {
	if p.ConsortiumID == "" {
		return Participant{}, domain.NewValidationError(domain.FieldConsortiumID, p.ConsortiumID, "consortium ID required")
	}
	if _, exists := tx.state.participants[p.ConsortiumID]; exists {
		return Participant{}, domain.NewConflictError(domain.EntityParticipant, p.ConsortiumID, "already exists")
	}
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	tx.state.participants[p.ConsortiumID] = cloneParticipant(p)
	tx.recordChange(Change{Entity: domain.EntityParticipant, Action: domain.ActionCreate, After: cloneParticipant(p)})
	return cloneParticipant(p), nil
}

// UpdateParticipant mutates a participant using the provided mutator function.
// The consortium ID and creation time cannot be changed through a mutator.
func (tx *transaction) UpdateParticipant(consortiumID string, mutator func(*Participant) error) (Participant, error) {
	current, ok := tx.state.participants[consortiumID]
	if !ok {
		return Participant{}, domain.NewNotFoundError(domain.EntityParticipant, consortiumID)
	}
	before := cloneParticipant(current)
	current = cloneParticipant(current)
	if err := mutator(&current); err != nil {
		return Participant{}, err
	}
	current.ConsortiumID = consortiumID
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.participants[consortiumID] = cloneParticipant(current)
	tx.recordChange(Change{Entity: domain.EntityParticipant, Action: domain.ActionUpdate, Before: before, After: cloneParticipant(current)})
	return cloneParticipant(current), nil
}

// DeleteParticipant removes a participant that no longer owns any records.
func (tx *transaction) DeleteParticipant(consortiumID string) error {
	current, ok := tx.state.participants[consortiumID]
	if !ok {
		return domain.NewNotFoundError(domain.EntityParticipant, consortiumID)
	}
	if h := holdingsOf(&tx.state, consortiumID); !h.Empty() {
		return domain.NewConflictError(domain.EntityParticipant, consortiumID,
			fmt.Sprintf("still owns %d aliases and %d samples", len(h.Aliases), h.Count()))
	}
	delete(tx.state.participants, consortiumID)
	tx.recordChange(Change{Entity: domain.EntityParticipant, Action: domain.ActionDelete, Before: cloneParticipant(current)})
	return nil
}

// CreateAlias stores a new alias record.
func (tx *transaction) CreateAlias(a Alias) (Alias, error) {
	if _, exists := tx.state.aliases[a.Alias]; exists {
		return Alias{}, domain.NewConflictError(domain.EntityAlias, a.Alias, "already exists")
	}
	tx.state.aliases[a.Alias] = a
	tx.recordChange(Change{Entity: domain.EntityAlias, Action: domain.ActionCreate, After: a})
	return a, nil
}

// DeleteAlias removes an alias record.
func (tx *transaction) DeleteAlias(alias string) error {
	current, ok := tx.state.aliases[alias]
	if !ok {
		return domain.NewNotFoundError(domain.EntityAlias, alias)
	}
	delete(tx.state.aliases, alias)
	tx.recordChange(Change{Entity: domain.EntityAlias, Action: domain.ActionDelete, Before: current})
	return nil
}

// CreateLCL stores a cell line record.
func (tx *transaction) CreateLCL(l RutgersLCL) (RutgersLCL, error) {
	key := lclKey(l.NIDDKNo)
	if _, exists := tx.state.lcls[key]; exists {
		return RutgersLCL{}, domain.NewConflictError(domain.EntityLCL, key, "already exists")
	}
	tx.state.lcls[key] = cloneLCL(l)
	tx.recordChange(Change{Entity: domain.EntityLCL, Action: domain.ActionCreate, After: cloneLCL(l)})
	return cloneLCL(l), nil
}

// CreateDNASample stores a repository DNA sample.
func (tx *transaction) CreateDNASample(d DNASample) (DNASample, error) {
	if _, exists := tx.state.dnaSamples[d.ID]; exists {
		return DNASample{}, domain.NewConflictError(domain.EntityDNASample, d.ID, "already exists")
	}
	tx.state.dnaSamples[d.ID] = cloneDNASample(d)
	tx.recordChange(Change{Entity: domain.EntityDNASample, Action: domain.ActionCreate, After: cloneDNASample(d)})
	return cloneDNASample(d), nil
}

// CreateSerumSample stores a repository serum sample.
func (tx *transaction) CreateSerumSample(d SerumSample) (SerumSample, error) {
	if _, exists := tx.state.serumSamples[d.ID]; exists {
		return SerumSample{}, domain.NewConflictError(domain.EntitySerumSample, d.ID, "already exists")
	}
	tx.state.serumSamples[d.ID] = cloneSerumSample(d)
	tx.recordChange(Change{Entity: domain.EntitySerumSample, Action: domain.ActionCreate, After: cloneSerumSample(d)})
	return cloneSerumSample(d), nil
}

// CreateLocalDNASample stores a center-held DNA sample.
func (tx *transaction) CreateLocalDNASample(d LocalDNASample) (LocalDNASample, error) {
	if _, exists := tx.state.localSamples[d.Key()]; exists {
		return LocalDNASample{}, domain.NewConflictError(domain.EntityLocalDNASample, d.Key(), "already exists")
	}
	tx.state.localSamples[d.Key()] = cloneLocalDNASample(d)
	tx.recordChange(Change{Entity: domain.EntityLocalDNASample, Action: domain.ActionCreate, After: cloneLocalDNASample(d)})
	return cloneLocalDNASample(d), nil
}

// Rehome points an owned record at another participant.
func (tx *transaction) Rehome(entity domain.EntityType, key, consortiumID string) error {
	if _, ok := tx.state.participants[consortiumID]; !ok {
		return domain.NewNotFoundError(domain.EntityParticipant, consortiumID)
	}
	switch entity {
	case domain.EntityAlias:
		a, ok := tx.state.aliases[key]
		if !ok {
			return domain.NewNotFoundError(entity, key)
		}
		before := a
		a.ConsortiumID = consortiumID
		tx.state.aliases[key] = a
		tx.recordChange(Change{Entity: entity, Action: domain.ActionUpdate, Before: before, After: a})
	case domain.EntityLCL:
		l, ok := tx.state.lcls[key]
		if !ok {
			return domain.NewNotFoundError(entity, key)
		}
		before := cloneLCL(l)
		l.ConsortiumID = consortiumID
		tx.state.lcls[key] = l
		tx.recordChange(Change{Entity: entity, Action: domain.ActionUpdate, Before: before, After: cloneLCL(l)})
	case domain.EntityDNASample:
		d, ok := tx.state.dnaSamples[key]
		if !ok {
			return domain.NewNotFoundError(entity, key)
		}
		before := cloneDNASample(d)
		d.ConsortiumID = consortiumID
		tx.state.dnaSamples[key] = d
		tx.recordChange(Change{Entity: entity, Action: domain.ActionUpdate, Before: before, After: cloneDNASample(d)})
	case domain.EntitySerumSample:
		d, ok := tx.state.serumSamples[key]
		if !ok {
			return domain.NewNotFoundError(entity, key)
		}
		before := cloneSerumSample(d)
		d.ConsortiumID = consortiumID
		tx.state.serumSamples[key] = d
		tx.recordChange(Change{Entity: entity, Action: domain.ActionUpdate, Before: before, After: cloneSerumSample(d)})
	case domain.EntityLocalDNASample:
		d, ok := tx.state.localSamples[key]
		if !ok {
			return domain.NewNotFoundError(entity, key)
		}
		before := cloneLocalDNASample(d)
		d.ConsortiumID = consortiumID
		tx.state.localSamples[key] = d
		tx.recordChange(Change{Entity: entity, Action: domain.ActionUpdate, Before: before, After: cloneLocalDNASample(d)})
	default:
		return fmt.Errorf("entity %s is not owned by participants", entity)
	}
	return nil
}

// Read helpers ---------------------------------------------------------------

// GetParticipant retrieves a participant by consortium ID from committed state.
func (s *Store) GetParticipant(consortiumID string) (Participant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.participants[consortiumID]
	if !ok {
		return Participant{}, false
	}
	return cloneParticipant(p), true
}

// ListParticipants returns all participants from committed state.
func (s *Store) ListParticipants() []Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListParticipants()
}
