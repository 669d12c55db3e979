package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/quillhq/quill/internal/generator"
	"github.com/quillhq/quill/internal/ledger"
	"github.com/quillhq/quill/internal/project"
	"github.com/quillhq/quill/internal/store"
)

const testOwner = "ada@example.com"

type fixture struct {
	t    *testing.T
	orch *Orchestrator
	st   *store.Memory
	rec  *recordingStore
	lg   *ledger.Memory
	gen  *generator.Mock
}

// recordingStore captures every persisted progress value so tests can
// assert monotonicity across checkpoints.
type recordingStore struct {
	store.Store

	mu       sync.Mutex
	progress []int
}

func (r *recordingStore) Update(ctx context.Context, p *project.Project) error {
	if err := r.Store.Update(ctx, p); err != nil {
		return err
	}
	r.mu.Lock()
	r.progress = append(r.progress, p.Metadata.Progress)
	r.mu.Unlock()
	return nil
}

func (r *recordingStore) progressSeen() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.progress))
	copy(out, r.progress)
	return out
}

func structureJSON(n int) string {
	var b strings.Builder
	b.WriteString(`{"chapters":[`)
	for i := 1; i <= n; i++ {
		if i > 1 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{"title":"Part %d","intro":"What part %d delivers."}`, i, i)
	}
	b.WriteString(`]}`)
	return b.String()
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	gen := generator.NewMock()
	gen.Responses["title/subtitle pairs"] = `{"titles":[` +
		`{"title":"The Long Road","subtitle":"A journey through the topic","rationale":"strong hook"},` +
		`{"title":"Second Thoughts","subtitle":"Another angle"}]}`
	gen.Responses["Design a structure of exactly"] = structureJSON(12)
	gen.Responses["marketing bundle"] = `{"synopsis":"A thorough book on the topic.",` +
		`"back_cover":"Everything the curious reader needs.","keywords":["topic","guide"]}`

	st := store.NewMemory()
	rec := &recordingStore{Store: st}
	lg := ledger.NewMemory()

	orch, err := New(Config{
		Store:          rec,
		Generator:      gen,
		Ledger:         lg,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		RetryDelay:     time.Millisecond,
		NarrativeDelay: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(orch.Shutdown)

	return &fixture{t: t, orch: orch, st: st, rec: rec, lg: lg, gen: gen}
}

func (f *fixture) start(ctx context.Context) *project.Project {
	f.t.Helper()
	res, err := f.orch.StartOrResume(ctx, StartRequest{
		Topic:      "beekeeping for city dwellers",
		Language:   "English",
		AuthorName: "Ada Lovelace",
		Owner:      project.Contact{Name: "Ada Lovelace", Email: testOwner},
	})
	if err != nil {
		f.t.Fatalf("StartOrResume: %v", err)
	}
	if res.Denied != nil {
		f.t.Fatalf("unexpected denial: %s", res.Denied.Reason)
	}
	return res.Project
}

func (f *fixture) mustGet(ctx context.Context, id string) *project.Project {
	f.t.Helper()
	p, err := f.orch.Get(ctx, id)
	if err != nil {
		f.t.Fatalf("Get: %v", err)
	}
	return p
}

func (f *fixture) waitStatus(ctx context.Context, id string, want project.Status) *project.Project {
	f.t.Helper()
	f.orch.Wait(id)
	p := f.mustGet(ctx, id)
	if p.Metadata.Status != want {
		f.t.Fatalf("status = %s (%s), want %s", p.Metadata.Status, p.Metadata.StatusMessage, want)
	}
	return p
}

// runToWaitingDetails pushes a fresh project through research, title
// choice, structure approval and writing.
func (f *fixture) runToWaitingDetails(ctx context.Context) *project.Project {
	f.t.Helper()
	f.lg.Grant(testOwner, 1)
	p := f.start(ctx)
	f.waitStatus(ctx, p.ID, project.StatusWaitingTitle)

	idx := 0
	if _, err := f.orch.ChooseTitle(ctx, p.ID, TitleChoice{Index: &idx}); err != nil {
		f.t.Fatalf("ChooseTitle: %v", err)
	}
	f.waitStatus(ctx, p.ID, project.StatusReviewStructure)

	if _, err := f.orch.ApproveStructure(ctx, p.ID); err != nil {
		f.t.Fatalf("ApproveStructure: %v", err)
	}
	return f.waitStatus(ctx, p.ID, project.StatusWaitingDetails)
}

func TestStart_ResearchParksInWaitingTitle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.lg.Grant(testOwner, 1)

	p := f.start(ctx)
	if p.Metadata.Status != project.StatusIdle {
		t.Fatalf("initial status = %s, want %s", p.Metadata.Status, project.StatusIdle)
	}

	p = f.waitStatus(ctx, p.ID, project.StatusWaitingTitle)
	if got := strings.Count(p.ResearchContext, "\n\n---\n\n"); got != 2 {
		t.Errorf("research context has %d separators, want 2", got)
	}
	if len(p.TitleOptions) == 0 {
		t.Fatal("no title options prepared")
	}
	if p.TitleOptions[0].Title != "The Long Road" {
		t.Errorf("first title = %q", p.TitleOptions[0].Title)
	}
	if credits, _ := f.lg.Credits(ctx, testOwner); credits != 0 {
		t.Errorf("credits after start = %d, want 0", credits)
	}
}

func TestChooseTitle_ProducesFullSkeleton(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.lg.Grant(testOwner, 1)

	p := f.start(ctx)
	f.waitStatus(ctx, p.ID, project.StatusWaitingTitle)

	idx := 0
	if _, err := f.orch.ChooseTitle(ctx, p.ID, TitleChoice{Index: &idx}); err != nil {
		t.Fatalf("ChooseTitle: %v", err)
	}
	p = f.waitStatus(ctx, p.ID, project.StatusReviewStructure)

	if p.Metadata.BookTitle != "The Long Road" {
		t.Errorf("book title = %q", p.Metadata.BookTitle)
	}
	if len(p.Structure) != DefaultChapterCount {
		t.Fatalf("structure has %d chapters, want %d", len(p.Structure), DefaultChapterCount)
	}
	for i, ch := range p.Structure {
		if ch.ID != i+1 {
			t.Errorf("chapter %d has id %d", i, ch.ID)
		}
		if ch.Generated {
			t.Errorf("chapter %d already marked generated", ch.ID)
		}
	}
}

func TestChooseTitle_ExplicitTitleAndGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.lg.Grant(testOwner, 1)

	p := f.start(ctx)

	// Title cannot be chosen before the project parks.
	if _, err := f.orch.ChooseTitle(ctx, p.ID, TitleChoice{Title: "Too Early"}); err == nil {
		t.Error("ChooseTitle before WAITING_TITLE should fail")
	}
	f.waitStatus(ctx, p.ID, project.StatusWaitingTitle)

	bad := 99
	if _, err := f.orch.ChooseTitle(ctx, p.ID, TitleChoice{Index: &bad}); err == nil {
		t.Error("out of range index should fail")
	}

	if _, err := f.orch.ChooseTitle(ctx, p.ID, TitleChoice{Title: "My Own Title", Subtitle: "My Words"}); err != nil {
		t.Fatalf("ChooseTitle: %v", err)
	}
	p = f.waitStatus(ctx, p.ID, project.StatusReviewStructure)
	if p.Metadata.BookTitle != "My Own Title" || p.Metadata.SubTitle != "My Words" {
		t.Errorf("title = %q / %q", p.Metadata.BookTitle, p.Metadata.SubTitle)
	}
}

func TestApproveStructure_WritesWholeBook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := f.runToWaitingDetails(ctx)

	if p.Metadata.Progress != 100 {
		t.Errorf("progress = %d, want 100", p.Metadata.Progress)
	}
	if len(p.Structure) != DefaultChapterCount+1 {
		t.Fatalf("structure has %d entries, want %d", len(p.Structure), DefaultChapterCount+1)
	}
	if p.Structure[0].ID != 0 || p.Structure[0].Title != "Introduction" {
		t.Errorf("position 0 is %d %q, want the introduction", p.Structure[0].ID, p.Structure[0].Title)
	}
	for _, ch := range p.Structure {
		if !ch.Produced() {
			t.Errorf("chapter %d not produced", ch.ID)
		}
	}
	if p.Marketing == nil || p.Marketing.Synopsis == "" {
		t.Error("marketing bundle missing")
	}
	if p.Metadata.Dedication == "" || p.Metadata.AboutAuthor == "" {
		t.Error("extras not filled")
	}
}

func TestWriting_ProgressNeverDecreases(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.runToWaitingDetails(ctx)

	seen := f.rec.progressSeen()
	if len(seen) == 0 {
		t.Fatal("no progress checkpoints recorded")
	}
	for i := 1; i < len(seen); i++ {
		if seen[i] < seen[i-1] {
			t.Fatalf("progress decreased at checkpoint %d: %v", i, seen)
		}
	}
}

func TestWriting_SkipsProducedChaptersOnResume(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// A project parked in REVIEW_STRUCTURE with chapter 2 already
	// produced by an earlier run.
	keep := strings.Repeat("Already written in a previous run. ", 10)
	p := project.New(project.Metadata{
		Topic:    "beekeeping for city dwellers",
		Language: "English",
		Owner:    project.Contact{Email: testOwner},
	})
	p.Metadata.Status = project.StatusReviewStructure
	p.Metadata.BookTitle = "The Long Road"
	for i := 1; i <= 4; i++ {
		p.Structure = append(p.Structure, project.Chapter{ID: i, Title: fmt.Sprintf("Part %d", i)})
	}
	p.Structure[1].Content = keep
	p.Structure[1].Generated = true
	if err := f.st.Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := f.orch.ApproveStructure(ctx, p.ID); err != nil {
		t.Fatalf("ApproveStructure: %v", err)
	}
	p = f.waitStatus(ctx, p.ID, project.StatusWaitingDetails)

	if p.Chapter(2).Content != keep {
		t.Error("produced chapter was regenerated")
	}
	if n := f.gen.CallCount("writing chapter 2 of"); n != 0 {
		t.Errorf("chapter 2 generated %d times, want 0", n)
	}
	for _, id := range []int{1, 3, 4} {
		if !p.Chapter(id).Produced() {
			t.Errorf("chapter %d not produced", id)
		}
	}
}

func TestWriting_DegradesExhaustedChapterToPlaceholder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gen.FailOn["writing chapter 3 of"] = -1

	p := f.runToWaitingDetails(ctx)

	ch := p.Chapter(3)
	if ch == nil {
		t.Fatal("chapter 3 missing")
	}
	if !ch.Generated {
		t.Error("degraded chapter should still be marked generated")
	}
	if ch.Produced() {
		t.Error("placeholder must stay below the produced threshold")
	}
	if !strings.Contains(ch.Content, "[PLACEHOLDER") {
		t.Errorf("chapter 3 content = %q", ch.Content)
	}
	// The failure is isolated: later chapters still get written.
	for _, id := range []int{4, 5, DefaultChapterCount} {
		if !p.Chapter(id).Produced() {
			t.Errorf("chapter %d not produced", id)
		}
	}
	if n := f.gen.CallCount("writing chapter 3 of"); n != DefaultChapterRetries {
		t.Errorf("chapter 3 attempted %d times, want %d", n, DefaultChapterRetries)
	}
}

func TestWriting_DegradesFailedIntroductionToPlaceholder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gen.FailOn["writing the introduction"] = -1

	p := f.runToWaitingDetails(ctx)

	intro := p.Chapter(0)
	if intro == nil {
		t.Fatal("introduction missing")
	}
	if p.Structure[0].ID != 0 {
		t.Errorf("introduction not at position 0, got id %d", p.Structure[0].ID)
	}
	if !intro.Generated {
		t.Error("degraded introduction should still be marked generated")
	}
	if intro.Produced() {
		t.Error("placeholder must stay below the produced threshold")
	}
	if !strings.Contains(intro.Content, "[PLACEHOLDER") {
		t.Errorf("introduction content = %q", intro.Content)
	}
	if n := f.gen.CallCount("writing the introduction"); n != DefaultChapterRetries {
		t.Errorf("introduction attempted %d times, want %d", n, DefaultChapterRetries)
	}
	// The body chapters are unaffected.
	for _, id := range []int{1, DefaultChapterCount} {
		if !p.Chapter(id).Produced() {
			t.Errorf("chapter %d not produced", id)
		}
	}
}

func TestFinalize_CompletesAndRecordsArtifact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := f.runToWaitingDetails(ctx)

	p, err := f.orch.Finalize(ctx, p.ID, FinalDetails{Dedication: "For Byron."})
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if p.Metadata.Status != project.StatusCompleted {
		t.Fatalf("status = %s, want %s", p.Metadata.Status, project.StatusCompleted)
	}
	if p.Metadata.Dedication != "For Byron." {
		t.Errorf("dedication = %q", p.Metadata.Dedication)
	}
	if p.Detail == nil || p.Detail.Kind != "completed" {
		t.Errorf("detail = %+v, want completed", p.Detail)
	}

	// Finalize is not repeatable once completed.
	if _, err := f.orch.Finalize(ctx, p.ID, FinalDetails{}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second finalize error = %v, want ErrInvalidTransition", err)
	}
}

func TestFinalize_RenderFailureFailsProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.orch.renderer = failingRenderer{}

	p := f.runToWaitingDetails(ctx)

	if _, err := f.orch.Finalize(ctx, p.ID, FinalDetails{}); err == nil {
		t.Fatal("Finalize should surface the render error")
	}
	p = f.mustGet(ctx, p.ID)
	if p.Metadata.Status != project.StatusFailed {
		t.Fatalf("status = %s, want %s", p.Metadata.Status, project.StatusFailed)
	}
	if p.Detail == nil || p.Detail.Cause != "finalize" {
		t.Errorf("detail = %+v, want finalize cause", p.Detail)
	}
}

type failingRenderer struct{}

func (failingRenderer) Render(ctx context.Context, p *project.Project) (string, error) {
	return "", errors.New("out of disk")
}

func TestResearchFailure_FailsProjectAndRetryRecovers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.lg.Grant(testOwner, 1)
	f.gen.FailOn["Describe the target audience"] = -1

	p := f.start(ctx)
	p = f.waitStatus(ctx, p.ID, project.StatusFailed)
	if !strings.Contains(p.Metadata.StatusMessage, "research stage failed") {
		t.Errorf("status message = %q", p.Metadata.StatusMessage)
	}
	if p.Detail == nil || p.Detail.Cause != "research" {
		t.Fatalf("detail = %+v, want research cause", p.Detail)
	}

	delete(f.gen.FailOn, "Describe the target audience")
	if _, err := f.orch.Retry(ctx, p.ID); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	f.waitStatus(ctx, p.ID, project.StatusWaitingTitle)
}

func TestTitleFallback_NeverStalls(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.lg.Grant(testOwner, 1)
	f.gen.FailOn["title/subtitle pairs"] = -1

	p := f.start(ctx)
	p = f.waitStatus(ctx, p.ID, project.StatusWaitingTitle)
	if len(p.TitleOptions) != 10 {
		t.Fatalf("fallback produced %d options, want 10", len(p.TitleOptions))
	}
	for _, opt := range p.TitleOptions {
		if !strings.Contains(opt.Title, "beekeeping for city dwellers") {
			t.Errorf("fallback title %q does not mention the topic", opt.Title)
		}
	}
}

func TestAdmission_DeniedWithoutCredits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.orch.StartOrResume(ctx, StartRequest{
		Topic: "beekeeping for city dwellers",
		Owner: project.Contact{Name: "Ada", Email: testOwner},
	})
	if err != nil {
		t.Fatalf("StartOrResume: %v", err)
	}
	if res.Denied == nil || res.Denied.Reason != DeniedNoCredits {
		t.Fatalf("result = %+v, want denial %s", res, DeniedNoCredits)
	}
	if res.Project != nil {
		t.Error("denied start must not create a project")
	}
	if _, err := f.st.LatestByOwner(ctx, testOwner); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("LatestByOwner error = %v, want ErrNotFound", err)
	}

	intents, err := f.orch.PendingIntents(ctx)
	if err != nil {
		t.Fatalf("PendingIntents: %v", err)
	}
	if len(intents) != 1 {
		t.Fatalf("got %d pending intents, want 1", len(intents))
	}
	if intents[0].OwnerEmail != testOwner || intents[0].Reason != DeniedNoCredits {
		t.Errorf("intent = %+v", intents[0])
	}
}

func TestAdmission_ResumesInsteadOfDuplicating(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.lg.Grant(testOwner, 2)

	p := f.start(ctx)
	f.waitStatus(ctx, p.ID, project.StatusWaitingTitle)

	res, err := f.orch.StartOrResume(ctx, StartRequest{
		Topic: "a completely different topic",
		Owner: project.Contact{Email: testOwner},
	})
	if err != nil {
		t.Fatalf("StartOrResume: %v", err)
	}
	if !res.Resumed {
		t.Fatal("second start should resume, not create")
	}
	if res.Project.ID != p.ID {
		t.Errorf("resumed id = %s, want %s", res.Project.ID, p.ID)
	}
	if credits, _ := f.lg.Credits(ctx, testOwner); credits != 1 {
		t.Errorf("credits = %d, want 1 (resume is free)", credits)
	}
}

func TestAdmission_ForceCreatesNewProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.lg.Grant(testOwner, 2)

	p := f.start(ctx)
	f.waitStatus(ctx, p.ID, project.StatusWaitingTitle)

	res, err := f.orch.StartOrResume(ctx, StartRequest{
		Topic: "a second book",
		Owner: project.Contact{Email: testOwner},
		Force: true,
	})
	if err != nil {
		t.Fatalf("StartOrResume: %v", err)
	}
	if res.Resumed || res.Project.ID == p.ID {
		t.Error("force start should create a fresh project")
	}
	f.orch.Wait(res.Project.ID)
	if credits, _ := f.lg.Credits(ctx, testOwner); credits != 0 {
		t.Errorf("credits = %d, want 0", credits)
	}
}

func TestAdmission_PrewrittenProjectDoesNotBlock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.lg.Grant(testOwner, 1)

	pre := project.New(project.Metadata{
		Topic: project.PrewrittenTopicMarker + "my memoir",
		Owner: project.Contact{Email: testOwner},
	})
	pre.Metadata.Status = project.StatusWaitingDetails
	if err := f.st.Create(ctx, pre); err != nil {
		t.Fatalf("Create: %v", err)
	}

	res, err := f.orch.StartOrResume(ctx, StartRequest{
		Topic: "beekeeping for city dwellers",
		Owner: project.Contact{Email: testOwner},
	})
	if err != nil {
		t.Fatalf("StartOrResume: %v", err)
	}
	if res.Resumed {
		t.Error("pre-written project must not capture a generation start")
	}
	f.orch.Wait(res.Project.ID)
}

func TestAdmission_DegradedResumeSignal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := project.New(project.Metadata{
		Topic: "beekeeping for city dwellers",
		Owner: project.Contact{Email: testOwner},
	})
	p.Metadata.Status = project.StatusWritingChapters
	if err := f.st.Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}

	res, err := f.orch.StartOrResume(ctx, StartRequest{
		Topic: "beekeeping for city dwellers",
		Owner: project.Contact{Email: testOwner},
	})
	if err != nil {
		t.Fatalf("StartOrResume: %v", err)
	}
	if !res.Resumed || !res.Degraded {
		t.Fatalf("result = %+v, want degraded resume", res)
	}
	if res.Project.Detail == nil || res.Project.Detail.Kind != "degraded_resume" {
		t.Errorf("detail = %+v", res.Project.Detail)
	}
}

func TestCancel_StopsRunningStage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.lg.Grant(testOwner, 1)

	release := make(chan struct{})
	f.orch.gen = &blockingGenerator{inner: f.gen, release: release}

	p := f.start(ctx)

	// Give the research task time to park inside the generator.
	time.Sleep(10 * time.Millisecond)
	if !f.orch.Cancel(p.ID) {
		t.Fatal("Cancel found no running task")
	}
	f.orch.Wait(p.ID)

	p = f.mustGet(ctx, p.ID)
	if p.Metadata.Status == project.StatusFailed {
		t.Errorf("cancellation must not fail the project, got %s: %s",
			p.Metadata.Status, p.Metadata.StatusMessage)
	}
	close(release)
}

// blockingGenerator parks every Text call until released or cancelled.
type blockingGenerator struct {
	inner   *generator.Mock
	release chan struct{}
}

func (b *blockingGenerator) Text(ctx context.Context, req generator.Request) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-b.release:
	}
	return b.inner.Text(ctx, req)
}

func (b *blockingGenerator) Structured(ctx context.Context, req generator.Request, schema string, out any) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.release:
	}
	return b.inner.Structured(ctx, req, schema, out)
}

func TestBasicTierGetsPlaceholderExtras(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := f.runToWaitingDetails(ctx)

	if !strings.Contains(p.Metadata.Dedication, "Replace this text") {
		t.Errorf("basic tier dedication = %q, want placeholder", p.Metadata.Dedication)
	}
	if n := f.gen.CallCount("Write the dedication section"); n != 0 {
		t.Errorf("basic tier generated %d dedications, want 0", n)
	}
}

func TestPremiumTierGeneratesExtras(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.lg.SetTier(testOwner, project.TierPremium)

	p := f.runToWaitingDetails(ctx)

	if strings.Contains(p.Metadata.Dedication, "Replace this text") {
		t.Error("premium tier should generate the dedication")
	}
	if n := f.gen.CallCount("Write the dedication section"); n != 1 {
		t.Errorf("dedication generated %d times, want 1", n)
	}
}

func TestAdvance_DispatchesEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.lg.Grant(testOwner, 1)

	p := f.start(ctx)
	f.waitStatus(ctx, p.ID, project.StatusWaitingTitle)

	if _, err := f.orch.Advance(ctx, p.ID, EventTitleChosen, []byte(`{"index":0}`)); err != nil {
		t.Fatalf("Advance title_chosen: %v", err)
	}
	f.waitStatus(ctx, p.ID, project.StatusReviewStructure)

	if _, err := f.orch.Advance(ctx, p.ID, Event("bogus"), nil); !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("unknown event error = %v, want ErrUnknownEvent", err)
	}
}

func TestNew_DelayConfiguration(t *testing.T) {
	tests := []struct {
		name          string
		retry         time.Duration
		narrative     time.Duration
		wantRetry     time.Duration
		wantNarrative time.Duration
	}{
		{"unset uses defaults", 0, 0, DefaultRetryDelay, DefaultNarrativeDelay},
		{"explicit values pass through", time.Second, 2 * time.Second, time.Second, 2 * time.Second},
		{"negative disables pacing", -1, -1, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orch, err := New(Config{
				Store:          store.NewMemory(),
				Generator:      generator.NewMock(),
				Ledger:         ledger.NewMemory(),
				Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
				RetryDelay:     tt.retry,
				NarrativeDelay: tt.narrative,
			})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			defer orch.Shutdown()

			if orch.retryDelay != tt.wantRetry {
				t.Errorf("retryDelay = %v, want %v", orch.retryDelay, tt.wantRetry)
			}
			if orch.narrativeDelay != tt.wantNarrative {
				t.Errorf("narrativeDelay = %v, want %v", orch.narrativeDelay, tt.wantNarrative)
			}
		})
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to project.Status
		want     bool
	}{
		{project.StatusIdle, project.StatusResearching, true},
		{project.StatusResearching, project.StatusFailed, true},
		{project.StatusWaitingTitle, project.StatusGeneratingStructure, true},
		{project.StatusFailed, project.StatusResearching, true},
		{project.StatusIdle, project.StatusCompleted, false},
		{project.StatusCompleted, project.StatusResearching, false},
		{project.StatusWaitingTitle, project.StatusWritingChapters, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}
