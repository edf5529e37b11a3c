package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/NpgsqlRest/NpgsqlRest-sub005/cache"
	"github.com/NpgsqlRest/NpgsqlRest-sub005/observe"
	"github.com/NpgsqlRest/NpgsqlRest-sub005/pgerror"
	"github.com/NpgsqlRest/NpgsqlRest-sub005/resilience"
	"github.com/NpgsqlRest/NpgsqlRest-sub005/routine"
)

// fakeRows replays a scripted result set through the pgx.Rows interface.
// err, when set, surfaces from Err after the last row, the way statement
// errors arrive on the wire.
type fakeRows struct {
	fields []pgconn.FieldDescription
	rows   [][]any
	err    error

	idx    int
	cur    []any
	closed bool
}

var _ pgx.Rows = (*fakeRows)(nil)

func (r *fakeRows) Next() bool {
	if r.closed || r.idx >= len(r.rows) {
		return false
	}
	r.cur = r.rows[r.idx]
	r.idx++
	return true
}

func (r *fakeRows) Err() error {
	if r.idx >= len(r.rows) {
		return r.err
	}
	return nil
}

func (r *fakeRows) Values() ([]any, error)                       { return r.cur, nil }
func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return r.fields }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }
func (r *fakeRows) Scan(dest ...any) error                       { return errors.New("not implemented") }

func fields(names ...string) []pgconn.FieldDescription {
	out := make([]pgconn.FieldDescription, len(names))
	for i, n := range names {
		out[i] = pgconn.FieldDescription{Name: n}
	}
	return out
}

// fakeConn is one scripted session. A slow conn blocks in Query until the
// context is done, standing in for a statement that outlives its deadline.
type fakeConn struct {
	rows *fakeRows
	err  error
	slow bool

	query    string
	args     []any
	released bool
}

var _ Conn = (*fakeConn)(nil)

func (c *fakeConn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	c.query = sql
	c.args = args
	if c.slow {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if c.err != nil {
		return nil, c.err
	}
	return c.rows, nil
}

func (c *fakeConn) Release() { c.released = true }

// fakeDB hands out scripted sessions in order. Acquiring past the end of
// the script fails, so a test touching the database more often than
// expected fails loudly instead of silently reusing a session.
type fakeDB struct {
	mu    sync.Mutex
	steps []acquireStep
	count int
}

type acquireStep struct {
	conn *fakeConn
	err  error
}

var _ DB = (*fakeDB)(nil)

func scriptDB(steps ...acquireStep) *fakeDB {
	return &fakeDB{steps: steps}
}

func (db *fakeDB) Acquire(ctx context.Context) (Conn, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.count++
	if len(db.steps) == 0 {
		return nil, errors.New("acquire past end of script")
	}
	step := db.steps[0]
	db.steps = db.steps[1:]
	if step.err != nil {
		return nil, step.err
	}
	return step.conn, nil
}

func (db *fakeDB) acquires() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.count
}

// recordingMetrics captures observe calls for assertions.
type recordingMetrics struct {
	mu       sync.Mutex
	outcomes []observe.CacheOutcome
	retries  []string
}

var _ observe.Metrics = (*recordingMetrics)(nil)

func (m *recordingMetrics) RecordExecution(context.Context, observe.RoutineMeta, time.Duration, error) {
}

func (m *recordingMetrics) RecordCache(_ context.Context, _ observe.RoutineMeta, outcome observe.CacheOutcome) {
	m.mu.Lock()
	m.outcomes = append(m.outcomes, outcome)
	m.mu.Unlock()
}

func (m *recordingMetrics) RecordRetry(_ context.Context, _ observe.RoutineMeta, code string) {
	m.mu.Lock()
	m.retries = append(m.retries, code)
	m.mu.Unlock()
}

func (m *recordingMetrics) cacheOutcomes() []observe.CacheOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]observe.CacheOutcome(nil), m.outcomes...)
}

func (m *recordingMetrics) retryCodes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.retries...)
}

func ordersRoutine() *routine.Routine {
	return &routine.Routine{
		Identity:   routine.Identity{Schema: "api", Name: "get_orders"},
		Kind:       routine.KindFunction,
		Volatility: routine.VolatilityStable,
		Params: []routine.Param{
			{Name: "customer_id", Position: 1, TypeName: "bigint", OID: 20},
			{Name: "status", Position: 2, TypeName: "text", OID: 25},
		},
		ReturnType: "record",
		ReturnsSet: true,
		Endpoint: routine.Endpoint{
			Method:  http.MethodGet,
			Path:    "/api/api/get-orders",
			Enabled: true,
		},
	}
}

func ordersArgs() []routine.Argument {
	return []routine.Argument{
		{Name: "customer_id", Text: "42"},
		{Name: "status", Text: "open"},
	}
}

func ordersRows() *fakeRows {
	return &fakeRows{
		fields: fields("id", "status"),
		rows: [][]any{
			{int64(1), "open"},
			{int64(2), "open"},
		},
	}
}

func testStrategies(t *testing.T, codes ...string) *resilience.Strategies {
	t.Helper()
	s, err := resilience.NewStrategies(resilience.DefaultStrategyName, resilience.Strategy{
		Name:   resilience.DefaultStrategyName,
		Delays: []time.Duration{time.Millisecond, time.Millisecond},
		Codes:  resilience.NewCodeSet(codes...),
	})
	if err != nil {
		t.Fatalf("NewStrategies() error = %v", err)
	}
	return s
}

func TestPipeline_Execute_SetResult(t *testing.T) {
	conn := &fakeConn{rows: ordersRows()}
	db := scriptDB(acquireStep{conn: conn})
	p := New(Deps{DB: db}, Config{})

	res := p.Execute(context.Background(), Invocation{Routine: ordersRoutine(), Args: ordersArgs()})

	if res.Status != http.StatusOK {
		t.Fatalf("Status = %d, want %d (payload %s)", res.Status, http.StatusOK, res.Payload)
	}
	if res.ContentType != ContentTypeJSON {
		t.Errorf("ContentType = %q, want %q", res.ContentType, ContentTypeJSON)
	}
	want := `[{"id":1,"status":"open"},{"id":2,"status":"open"}]`
	if string(res.Payload) != want {
		t.Errorf("Payload = %s, want %s", res.Payload, want)
	}
	wantSQL := `select * from "api"."get_orders"($1::bigint, $2::text)`
	if conn.query != wantSQL {
		t.Errorf("command = %q, want %q", conn.query, wantSQL)
	}
	if wantArgs := []any{"42", "open"}; !reflect.DeepEqual(conn.args, wantArgs) {
		t.Errorf("args = %v, want %v", conn.args, wantArgs)
	}
	if !conn.released {
		t.Error("session was not released")
	}
}

func TestPipeline_Execute_ScalarResult(t *testing.T) {
	r := &routine.Routine{
		Identity:   routine.Identity{Schema: "api", Name: "order_total"},
		Kind:       routine.KindFunction,
		Volatility: routine.VolatilityStable,
		Params:     []routine.Param{{Name: "order_id", Position: 1, TypeName: "bigint", OID: 20}},
		ReturnType: "bigint",
		Endpoint:   routine.Endpoint{Method: http.MethodGet, Path: "/api/api/order-total", Enabled: true},
	}
	conn := &fakeConn{rows: &fakeRows{
		fields: fields("order_total"),
		rows:   [][]any{{int64(1995)}},
	}}
	db := scriptDB(acquireStep{conn: conn})
	p := New(Deps{DB: db}, Config{})

	res := p.Execute(context.Background(), Invocation{
		Routine: r,
		Args:    []routine.Argument{{Name: "order_id", Text: "7"}},
	})

	if res.Status != http.StatusOK {
		t.Fatalf("Status = %d, want %d (payload %s)", res.Status, http.StatusOK, res.Payload)
	}
	if string(res.Payload) != "1995" {
		t.Errorf("Payload = %s, want 1995", res.Payload)
	}
	if want := `select "api"."order_total"($1::bigint)`; conn.query != want {
		t.Errorf("command = %q, want %q", conn.query, want)
	}
}

func TestPipeline_Execute_Void(t *testing.T) {
	r := &routine.Routine{
		Identity:   routine.Identity{Schema: "api", Name: "purge_sessions"},
		Kind:       routine.KindProcedure,
		Volatility: routine.VolatilityVolatile,
		ReturnType: "void",
		IsVoid:     true,
		Endpoint:   routine.Endpoint{Method: http.MethodPost, Path: "/api/api/purge-sessions", Enabled: true},
	}
	conn := &fakeConn{rows: &fakeRows{}}
	db := scriptDB(acquireStep{conn: conn})
	p := New(Deps{DB: db}, Config{})

	res := p.Execute(context.Background(), Invocation{Routine: r})

	if res.Status != http.StatusNoContent {
		t.Fatalf("Status = %d, want %d (payload %s)", res.Status, http.StatusNoContent, res.Payload)
	}
	if len(res.Payload) != 0 {
		t.Errorf("Payload = %s, want empty", res.Payload)
	}
	if want := `call "api"."purge_sessions"()`; conn.query != want {
		t.Errorf("command = %q, want %q", conn.query, want)
	}
}

func TestPipeline_Execute_CacheHitSkipsDatabase(t *testing.T) {
	r := ordersRoutine()
	r.Endpoint.Cached = true

	db := scriptDB(acquireStep{conn: &fakeConn{rows: ordersRows()}})
	metrics := &recordingMetrics{}
	p := New(
		Deps{DB: db, Cache: cache.NewStore(cache.StoreConfig{}), Metrics: metrics},
		Config{CacheEnabled: true, DefaultCacheTTL: time.Minute},
	)
	inv := Invocation{Routine: r, Args: ordersArgs()}

	first := p.Execute(context.Background(), inv)
	second := p.Execute(context.Background(), inv)

	if first.Status != http.StatusOK || second.Status != http.StatusOK {
		t.Fatalf("statuses = %d, %d, want 200, 200", first.Status, second.Status)
	}
	if string(first.Payload) != string(second.Payload) {
		t.Errorf("cached payload differs: %s vs %s", first.Payload, second.Payload)
	}
	if got := db.acquires(); got != 1 {
		t.Errorf("acquires = %d, want 1", got)
	}
	want := []observe.CacheOutcome{observe.CacheMiss, observe.CacheStore, observe.CacheHit}
	if got := metrics.cacheOutcomes(); !reflect.DeepEqual(got, want) {
		t.Errorf("cache outcomes = %v, want %v", got, want)
	}
}

func TestPipeline_Execute_CacheKeyVariesWithArguments(t *testing.T) {
	r := ordersRoutine()
	r.Endpoint.Cached = true
	db := scriptDB(
		acquireStep{conn: &fakeConn{rows: ordersRows()}},
		acquireStep{conn: &fakeConn{rows: ordersRows()}},
	)
	p := New(
		Deps{DB: db, Cache: cache.NewStore(cache.StoreConfig{})},
		Config{CacheEnabled: true, DefaultCacheTTL: time.Minute},
	)

	p.Execute(context.Background(), Invocation{Routine: r, Args: ordersArgs()})
	p.Execute(context.Background(), Invocation{Routine: r, Args: []routine.Argument{
		{Name: "customer_id", Text: "42"},
		{Name: "status", Text: "closed"},
	}})

	if got := db.acquires(); got != 2 {
		t.Errorf("acquires = %d, want 2 (distinct arguments must not share an entry)", got)
	}
}

func TestPipeline_Execute_CacheBypassWhenNotCached(t *testing.T) {
	db := scriptDB(acquireStep{conn: &fakeConn{rows: ordersRows()}})
	metrics := &recordingMetrics{}
	p := New(
		Deps{DB: db, Cache: cache.NewStore(cache.StoreConfig{}), Metrics: metrics},
		Config{CacheEnabled: true, DefaultCacheTTL: time.Minute},
	)

	res := p.Execute(context.Background(), Invocation{Routine: ordersRoutine(), Args: ordersArgs()})

	if res.Status != http.StatusOK {
		t.Fatalf("Status = %d, want 200", res.Status)
	}
	want := []observe.CacheOutcome{observe.CacheBypass}
	if got := metrics.cacheOutcomes(); !reflect.DeepEqual(got, want) {
		t.Errorf("cache outcomes = %v, want %v", got, want)
	}
}

func TestPipeline_Execute_RowLimitBlocksStorage(t *testing.T) {
	one := int64(1)
	r := ordersRoutine()
	r.Endpoint.Cached = true
	r.Endpoint.CacheMaxRows = &one

	db := scriptDB(
		acquireStep{conn: &fakeConn{rows: ordersRows()}},
		acquireStep{conn: &fakeConn{rows: ordersRows()}},
	)
	metrics := &recordingMetrics{}
	p := New(
		Deps{DB: db, Cache: cache.NewStore(cache.StoreConfig{}), Metrics: metrics},
		Config{CacheEnabled: true, DefaultCacheTTL: time.Minute},
	)
	inv := Invocation{Routine: r, Args: ordersArgs()}

	first := p.Execute(context.Background(), inv)
	second := p.Execute(context.Background(), inv)

	if first.Status != http.StatusOK || second.Status != http.StatusOK {
		t.Fatalf("statuses = %d, %d, want 200, 200", first.Status, second.Status)
	}
	if got := db.acquires(); got != 2 {
		t.Errorf("acquires = %d, want 2 (a two-row set must not be stored under a one-row limit)", got)
	}
	for _, o := range metrics.cacheOutcomes() {
		if o == observe.CacheStore {
			t.Errorf("cache outcomes = %v, want no store", metrics.cacheOutcomes())
		}
	}
}

func TestPipeline_Invalidate(t *testing.T) {
	r := ordersRoutine()
	r.Endpoint.Cached = true
	db := scriptDB(
		acquireStep{conn: &fakeConn{rows: ordersRows()}},
		acquireStep{conn: &fakeConn{rows: ordersRows()}},
	)
	p := New(
		Deps{DB: db, Cache: cache.NewStore(cache.StoreConfig{})},
		Config{CacheEnabled: true, DefaultCacheTTL: time.Minute},
	)
	inv := Invocation{Routine: r, Args: ordersArgs()}

	p.Execute(context.Background(), inv)

	if !p.Invalidate(inv) {
		t.Error("Invalidate() = false after a cached execution, want true")
	}
	if p.Invalidate(inv) {
		t.Error("Invalidate() = true with no entry present, want false")
	}

	p.Execute(context.Background(), inv)
	if got := db.acquires(); got != 2 {
		t.Errorf("acquires = %d, want 2 (invalidation must force a rebuild)", got)
	}
}

func TestPipeline_Invalidate_UncachedRoutine(t *testing.T) {
	p := New(
		Deps{DB: scriptDB(), Cache: cache.NewStore(cache.StoreConfig{})},
		Config{CacheEnabled: true},
	)
	if p.Invalidate(Invocation{Routine: ordersRoutine(), Args: ordersArgs()}) {
		t.Error("Invalidate() = true for an uncached routine, want false")
	}
}

func TestPipeline_Execute_RetriesSerializationFailure(t *testing.T) {
	serialization := &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
	failing := &fakeConn{err: serialization}
	good := &fakeConn{rows: ordersRows()}
	db := scriptDB(acquireStep{conn: failing}, acquireStep{conn: good})

	metrics := &recordingMetrics{}
	p := New(Deps{DB: db, Strategies: testStrategies(t, "40001"), Metrics: metrics}, Config{})

	res := p.Execute(context.Background(), Invocation{Routine: ordersRoutine(), Args: ordersArgs()})

	if res.Status != http.StatusOK {
		t.Fatalf("Status = %d, want 200 (payload %s)", res.Status, res.Payload)
	}
	if got := db.acquires(); got != 2 {
		t.Errorf("acquires = %d, want 2", got)
	}
	if !failing.released || !good.released {
		t.Error("every leased session must be released, failed attempts included")
	}
	if want := []string{"40001"}; !reflect.DeepEqual(metrics.retryCodes(), want) {
		t.Errorf("retry codes = %v, want %v", metrics.retryCodes(), want)
	}
}

func TestPipeline_Execute_StreamErrorRetried(t *testing.T) {
	serialization := &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
	streaming := &fakeConn{rows: &fakeRows{
		fields: fields("id", "status"),
		rows:   [][]any{{int64(1), "open"}},
		err:    serialization,
	}}
	good := &fakeConn{rows: ordersRows()}
	db := scriptDB(acquireStep{conn: streaming}, acquireStep{conn: good})
	p := New(Deps{DB: db, Strategies: testStrategies(t, "40001")}, Config{})

	res := p.Execute(context.Background(), Invocation{Routine: ordersRoutine(), Args: ordersArgs()})

	if res.Status != http.StatusOK {
		t.Fatalf("Status = %d, want 200 (payload %s)", res.Status, res.Payload)
	}
	if got := db.acquires(); got != 2 {
		t.Errorf("acquires = %d, want 2 (stream errors count as attempt failures)", got)
	}
}

func TestPipeline_Execute_RetryBudgetExhausted(t *testing.T) {
	serialization := &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
	db := scriptDB(
		acquireStep{conn: &fakeConn{err: serialization}},
		acquireStep{conn: &fakeConn{err: serialization}},
		acquireStep{conn: &fakeConn{err: serialization}},
	)
	p := New(Deps{DB: db, Strategies: testStrategies(t, "40001")}, Config{})

	res := p.Execute(context.Background(), Invocation{Routine: ordersRoutine(), Args: ordersArgs()})

	if res.Status != http.StatusConflict {
		t.Fatalf("Status = %d, want %d (payload %s)", res.Status, http.StatusConflict, res.Payload)
	}
	if got := db.acquires(); got != 3 {
		t.Errorf("acquires = %d, want 3 (two retries after the initial attempt)", got)
	}
}

func TestPipeline_Execute_CommandRetryDisabled(t *testing.T) {
	serialization := &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
	db := scriptDB(acquireStep{conn: &fakeConn{err: serialization}})
	p := New(
		Deps{DB: db, Strategies: testStrategies(t, "40001")},
		Config{CommandRetryDisabled: true},
	)

	res := p.Execute(context.Background(), Invocation{Routine: ordersRoutine(), Args: ordersArgs()})

	if res.Status != http.StatusConflict {
		t.Fatalf("Status = %d, want %d", res.Status, http.StatusConflict)
	}
	if got := db.acquires(); got != 1 {
		t.Errorf("acquires = %d, want 1 with retry disabled", got)
	}
}

func TestPipeline_Execute_PermissionDeniedNotRetried(t *testing.T) {
	denied := &pgconn.PgError{Code: "42501", Message: "permission denied for function get_orders"}
	db := scriptDB(acquireStep{conn: &fakeConn{err: denied}})
	p := New(Deps{DB: db, Strategies: testStrategies(t, "40001")}, Config{})

	res := p.Execute(context.Background(), Invocation{Routine: ordersRoutine(), Args: ordersArgs()})

	if res.Status != http.StatusForbidden {
		t.Fatalf("Status = %d, want %d (payload %s)", res.Status, http.StatusForbidden, res.Payload)
	}
	if res.ContentType != pgerror.ProblemContentType {
		t.Errorf("ContentType = %q, want %q", res.ContentType, pgerror.ProblemContentType)
	}
	var prob pgerror.Problem
	if err := json.Unmarshal(res.Payload, &prob); err != nil {
		t.Fatalf("Unmarshal(%s) error = %v", res.Payload, err)
	}
	want := pgerror.Problem{
		Status: http.StatusForbidden,
		Title:  "Insufficient Privilege",
		Code:   "42501",
		Detail: "permission denied for function get_orders",
	}
	if prob != want {
		t.Errorf("problem = %+v, want %+v", prob, want)
	}
	if got := db.acquires(); got != 1 {
		t.Errorf("acquires = %d, want 1 (permission errors are terminal)", got)
	}
}

func TestPipeline_Execute_Timeout(t *testing.T) {
	r := ordersRoutine()
	r.Endpoint.Timeout = 20 * time.Millisecond
	db := scriptDB(acquireStep{conn: &fakeConn{slow: true}})
	p := New(Deps{DB: db}, Config{})

	start := time.Now()
	res := p.Execute(context.Background(), Invocation{Routine: r, Args: ordersArgs()})

	if res.Status != http.StatusGatewayTimeout {
		t.Fatalf("Status = %d, want %d (payload %s)", res.Status, http.StatusGatewayTimeout, res.Payload)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("execution took %v, the deadline did not fire", elapsed)
	}
	var prob pgerror.Problem
	if err := json.Unmarshal(res.Payload, &prob); err != nil {
		t.Fatalf("Unmarshal(%s) error = %v", res.Payload, err)
	}
	if prob.Title != "Gateway Timeout" {
		t.Errorf("Title = %q, want Gateway Timeout", prob.Title)
	}
	if prob.Detail != "" {
		t.Errorf("Detail = %q, want empty for a server fault", prob.Detail)
	}
}

func TestPipeline_Execute_ClientDisconnect(t *testing.T) {
	db := scriptDB(acquireStep{conn: &fakeConn{slow: true}})
	p := New(Deps{DB: db}, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	timer := time.AfterFunc(5*time.Millisecond, cancel)
	defer timer.Stop()

	res := p.Execute(ctx, Invocation{Routine: ordersRoutine(), Args: ordersArgs()})

	if res.Status != 499 {
		t.Fatalf("Status = %d, want 499 (payload %s)", res.Status, res.Payload)
	}
}

func TestPipeline_Execute_CircuitOpensAfterConnectFailure(t *testing.T) {
	db := scriptDB(acquireStep{err: errors.New("dial tcp 10.0.0.5:5432: connection refused")})
	circuit := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		MaxFailures:  1,
		ResetTimeout: time.Minute,
	})
	p := New(Deps{DB: db, Circuit: circuit}, Config{ConnectionRetryDisabled: true})
	inv := Invocation{Routine: ordersRoutine(), Args: ordersArgs()}

	first := p.Execute(context.Background(), inv)
	if first.Status != http.StatusInternalServerError {
		t.Fatalf("first Status = %d, want 500 (payload %s)", first.Status, first.Payload)
	}
	var prob pgerror.Problem
	if err := json.Unmarshal(first.Payload, &prob); err != nil {
		t.Fatalf("Unmarshal(%s) error = %v", first.Payload, err)
	}
	if prob.Detail != "" || prob.Code != "" {
		t.Errorf("connect failure leaked internals: %+v", prob)
	}

	second := p.Execute(context.Background(), inv)
	if second.Status != http.StatusServiceUnavailable {
		t.Fatalf("second Status = %d, want 503 (payload %s)", second.Status, second.Payload)
	}
	if got := db.acquires(); got != 1 {
		t.Errorf("acquires = %d, want 1 (an open circuit must reject before the pool)", got)
	}
	if got := circuit.State(); got != resilience.StateOpen {
		t.Errorf("circuit state = %v, want open", got)
	}
}

func TestPipeline_Execute_ConnectRetryRecovers(t *testing.T) {
	conn := &fakeConn{rows: ordersRows()}
	db := scriptDB(
		acquireStep{err: errors.New("dial tcp: connection refused")},
		acquireStep{conn: conn},
	)
	p := New(Deps{
		DB:         db,
		Connection: resilience.Strategy{Delays: []time.Duration{time.Millisecond}},
	}, Config{})

	res := p.Execute(context.Background(), Invocation{Routine: ordersRoutine(), Args: ordersArgs()})

	if res.Status != http.StatusOK {
		t.Fatalf("Status = %d, want 200 (payload %s)", res.Status, res.Payload)
	}
	if got := db.acquires(); got != 2 {
		t.Errorf("acquires = %d, want 2", got)
	}
}
