// Package importer drives the import pipeline: parse, dedupe, fetch,
// classify, persist, emit progress. One Import call is one run; the
// session record is written exactly once at the end, including for
// cancelled runs.
package importer

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fury/internal/common"
	"github.com/ternarybob/fury/internal/interfaces"
	"github.com/ternarybob/fury/internal/models"
	"github.com/ternarybob/fury/internal/services/classifier"
	"github.com/ternarybob/fury/internal/services/parser"
	"github.com/ternarybob/fury/internal/services/textproc"
)

// Service orchestrates bookmark imports.
type Service struct {
	config     *common.ImporterConfig
	storage    interfaces.StorageManager
	fetcher    interfaces.FetcherService
	classifier *classifier.Classifier
	assigner   interfaces.AssignerService
	events     interfaces.EventService
	logger     arbor.ILogger
}

// NewService wires the orchestrator. The event service is optional.
func NewService(
	config *common.ImporterConfig,
	storage interfaces.StorageManager,
	fetcher interfaces.FetcherService,
	cls *classifier.Classifier,
	assigner interfaces.AssignerService,
	events interfaces.EventService,
	logger arbor.ILogger,
) interfaces.ImportService {
	return &Service{
		config:     config,
		storage:    storage,
		fetcher:    fetcher,
		classifier: cls,
		assigner:   assigner,
		events:     events,
		logger:     logger,
	}
}

// run holds the per-import counters. Workers on the default path update
// it concurrently, so every mutation goes through the mutex.
type run struct {
	sink   interfaces.EventSink
	logger arbor.ILogger

	mu               sync.Mutex
	totalInFile      int
	unique           int
	duplicates       int
	processed        int
	newBookmarks     int
	updatedBookmarks int
	skipped          int
	failed           int

	categoriesCreated int
	aiAssignments     int
}

func (r *run) emit(name string, data interface{}) {
	if r.sink != nil {
		r.sink.Emit(models.ImportEvent{Name: name, Data: data})
	}
}

func (r *run) status(phase, message string) {
	r.emit(models.EventStatus, models.StatusPayload{Phase: phase, Message: message})
}

// item records one processed bookmark and emits its progress frame.
func (r *run) item(current, phase string, outcome func(*run)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	outcome(r)
	r.processed++
	r.emit(models.EventProgress, r.progressLocked(current, phase))
}

func (r *run) progressLocked(current, phase string) models.ProgressPayload {
	percent := 0
	if r.unique > 0 {
		percent = r.processed * 100 / r.unique
	}
	return models.ProgressPayload{
		Processed:        r.processed,
		Total:            r.unique,
		Percent:          percent,
		CurrentBookmark:  current,
		NewBookmarks:     r.newBookmarks,
		UpdatedBookmarks: r.updatedBookmarks,
		Skipped:          r.skipped,
		Failed:           r.failed,
		Phase:            phase,
	}
}

// Import runs the full pipeline and reports everything to the sink.
// Per-bookmark failures are counted, never terminal; only an unreadable
// archive, persistence failure or cancellation end the run early.
func (s *Service) Import(ctx context.Context, archiveHTML string, opts interfaces.ImportOptions, sink interfaces.EventSink) error {
	r := &run{sink: sink, logger: s.logger.WithCorrelationId(common.NewRunID())}

	r.status(models.PhaseParsing, "Parsing bookmark file")
	parsed, err := parser.Parse(archiveHTML)
	if err != nil {
		return s.fail(r, err)
	}

	unique, duplicates := dedupe(parsed)
	r.totalInFile = len(parsed)
	r.unique = len(unique)
	r.duplicates = duplicates
	r.emit(models.EventInit, models.InitPayload{
		TotalInFile:      r.totalInFile,
		UniqueBookmarks:  r.unique,
		DuplicatesInFile: r.duplicates,
	})

	var runErr error
	if len(opts.CustomCategories) > 0 {
		runErr = s.runCustomPath(ctx, unique, opts, r)
	} else {
		runErr = s.runDefaultPath(ctx, unique, r)
	}
	if runErr != nil && !errors.Is(runErr, models.ErrCancelled) {
		return s.fail(r, runErr)
	}

	// Session record, written exactly once. A cancelled context must not
	// stop the write, so the storage call runs detached from it.
	r.status(models.PhaseSessioning, "Recording import session")
	session, err := s.storage.SessionStorage().Create(context.WithoutCancel(ctx), &models.ImportSession{
		FileName:    opts.FileName,
		TotalParsed: r.totalInFile,
		Successful:  r.newBookmarks + r.updatedBookmarks,
		Failed:      r.failed,
		Skipped:     r.skipped + r.duplicates,
	})
	if err != nil {
		return s.fail(r, fmt.Errorf("failed to record import session: %w", err))
	}

	if errors.Is(runErr, models.ErrCancelled) {
		r.logger.Warn().Int64("session_id", session.ID).Int("processed", r.processed).Msg("Import cancelled")
		r.emit(models.EventError, models.ErrorPayload{Message: "cancelled"})
		s.publish(interfaces.EventImportFailed, "cancelled")
		return runErr
	}

	complete := models.CompletePayload{
		ImportSessionID:         session.ID,
		TotalInFile:             r.totalInFile,
		UniqueBookmarks:         r.unique,
		DuplicatesInFile:        r.duplicates,
		NewBookmarks:            r.newBookmarks,
		UpdatedBookmarks:        r.updatedBookmarks,
		SuccessfulBookmarks:     r.newBookmarks + r.updatedBookmarks,
		FailedBookmarks:         r.failed,
		SkippedBookmarks:        r.skipped,
		CustomCategoriesCreated: r.categoriesCreated,
		AIAssignments:           r.aiAssignments,
	}
	r.emit(models.EventComplete, complete)
	s.publish(interfaces.EventImportCompleted, complete)
	r.logger.Info().
		Int64("session_id", session.ID).
		Int("total", r.totalInFile).
		Int("new", r.newBookmarks).
		Int("updated", r.updatedBookmarks).
		Int("skipped", r.skipped).
		Int("failed", r.failed).
		Msg("Import completed")
	return nil
}

// fail emits the terminal error frame and surfaces the error.
func (s *Service) fail(r *run, err error) error {
	r.logger.Error().Err(err).Msg("Import failed")
	r.emit(models.EventError, models.ErrorPayload{Message: err.Error()})
	s.publish(interfaces.EventImportFailed, err.Error())
	return err
}

func (s *Service) publish(eventType interfaces.EventType, payload interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(context.Background(), interfaces.Event{Type: eventType, Payload: payload}); err != nil {
		s.logger.Warn().Err(err).Str("event", string(eventType)).Msg("Event publish failed")
	}
}

// dedupe canonicalizes every URL and keeps the first occurrence of each.
func dedupe(parsed []models.ParsedBookmark) ([]models.ParsedBookmark, int) {
	seen := make(map[string]bool, len(parsed))
	unique := make([]models.ParsedBookmark, 0, len(parsed))
	duplicates := 0
	for _, bm := range parsed {
		canonical := common.NormalizeURL(bm.URL)
		if canonical == "" || seen[canonical] {
			duplicates++
			continue
		}
		seen[canonical] = true
		bm.URL = canonical
		unique = append(unique, bm)
	}
	return unique, duplicates
}

// runDefaultPath streams every bookmark through validate, fetch,
// classify, persist. Work runs in chunks of PauseEvery across the worker
// pool, with a polite pause between chunks; cancellation is observed at
// the chunk boundary.
func (s *Service) runDefaultPath(ctx context.Context, bookmarks []models.ParsedBookmark, r *run) error {
	concurrency := s.config.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	chunkSize := s.config.PauseEvery
	if chunkSize <= 0 {
		chunkSize = 5
	}

	r.status(models.PhaseImporting, "Importing bookmarks")

	for start := 0; start < len(bookmarks); start += chunkSize {
		if ctx.Err() != nil {
			return models.ErrCancelled
		}
		if start > 0 {
			s.pause()
		}

		end := start + chunkSize
		if end > len(bookmarks) {
			end = len(bookmarks)
		}

		var wg sync.WaitGroup
		sem := make(chan struct{}, concurrency)
		for _, bm := range bookmarks[start:end] {
			wg.Add(1)
			sem <- struct{}{}
			go func(bm models.ParsedBookmark) {
				defer wg.Done()
				defer func() { <-sem }()
				s.processBookmark(ctx, bm, r)
			}(bm)
		}
		wg.Wait()
	}
	return nil
}

func (s *Service) pause() {
	d := s.config.PauseMin
	if s.config.PauseJitter > 0 {
		d += time.Duration(rand.Int63n(int64(s.config.PauseJitter)))
	}
	if d > 0 {
		time.Sleep(d)
	}
}

// processBookmark runs the validate, fetch, classify, persist chain for
// one bookmark on the default path. Every outcome lands in exactly one
// counter.
func (s *Service) processBookmark(ctx context.Context, bm models.ParsedBookmark, r *run) {
	if !s.fetcher.Validate(ctx, bm.URL) {
		r.emit(models.EventSkipped, models.SkippedPayload{URL: bm.URL, Reason: models.SkipReasonInvalidURL})
		r.item(bm.Title, models.PhaseImporting, func(r *run) { r.skipped++ })
		return
	}

	bookmark := &models.Bookmark{
		URL:          bm.URL,
		Title:        bm.Title,
		Description:  bm.Description,
		SourceFolder: bm.SourceFolder,
	}
	in := classifier.Input{
		URL:         bm.URL,
		Title:       bm.Title,
		Description: bm.Description,
	}

	// A bookmark the stale sweep flagged gets its enrichment re-fetched
	// from the network instead of the metadata cache; the upsert below
	// clears the flag.
	refresh := false
	if existing, err := s.storage.BookmarkStorage().GetByURL(ctx, bm.URL); err == nil && existing.Stale {
		refresh = true
	}

	if meta := s.fetcher.Fetch(ctx, bm.URL, refresh); meta != nil {
		bookmark.MetaTitle = meta.Title
		bookmark.MetaDescription = meta.MetaDescription
		bookmark.OGTitle = meta.OGTitle
		bookmark.OGDescription = meta.OGDescription
		bookmark.OGImage = meta.OGImage

		if in.Description == "" {
			in.Description = firstNonEmpty(meta.MetaDescription, meta.OGDescription)
		}
		if meta.BodyText != "" {
			keywords := textproc.Words(textproc.ExtractSemanticKeywords(meta.BodyText, textproc.DefaultOptions()))
			in.Keywords = keywords
			bookmark.Keywords = strings.Join(keywords, ",")
		}
	}

	result := s.classifier.Classify(in)
	bookmark.SuggestedCategory = result.Category
	bookmark.Confidence = result.Confidence

	category, err := s.storage.CategoryStorage().EnsureCategory(ctx, result.Category)
	if err != nil {
		r.logger.Warn().Err(err).Str("url", bm.URL).Str("category", result.Category).Msg("Category lookup failed")
		r.item(bm.Title, models.PhaseImporting, func(r *run) { r.failed++ })
		return
	}
	bookmark.CategoryID = &category.ID

	_, created, err := s.storage.BookmarkStorage().Upsert(ctx, bookmark)
	if err != nil {
		r.logger.Warn().Err(err).Str("url", bm.URL).Msg("Bookmark upsert failed")
		r.item(bm.Title, models.PhaseImporting, func(r *run) { r.failed++ })
		return
	}

	r.item(bm.Title, models.PhaseImporting, func(r *run) {
		if created {
			r.newBookmarks++
		} else {
			r.updatedBookmarks++
		}
	})
}

// runCustomPath persists the supplied taxonomy, batch-assigns the
// bookmarks against it, then runs the fast loop: no metadata fetching,
// keyword fallback for anything the LLM left unassigned.
func (s *Service) runCustomPath(ctx context.Context, bookmarks []models.ParsedBookmark, opts interfaces.ImportOptions, r *run) error {
	r.status(models.PhaseImporting, "Persisting custom categories")
	created, err := s.storage.CategoryStorage().CreateBulk(ctx, opts.CustomCategories, opts.ReplaceExisting)
	if err != nil {
		return fmt.Errorf("failed to persist custom categories: %w", err)
	}
	r.categoriesCreated = created.Created

	categories, err := s.storage.CategoryStorage().List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load categories: %w", err)
	}

	r.status(models.PhaseAssigning, "Assigning bookmarks to categories")
	assignments, _, err := s.assigner.Assign(ctx, bookmarks, categories, func(assigned, total int) {
		r.mu.Lock()
		defer r.mu.Unlock()
		percent := 0
		if total > 0 {
			percent = assigned * 100 / total
		}
		r.emit(models.EventProgress, models.ProgressPayload{
			Processed: assigned,
			Total:     total,
			Percent:   percent,
			Phase:     models.PhaseAssigning,
		})
	})
	if err != nil {
		return err
	}
	r.aiAssignments = len(assignments)

	fallback, err := s.fallbackCategory(ctx, categories)
	if err != nil {
		return fmt.Errorf("failed to resolve fallback category: %w", err)
	}

	progressEvery := s.config.ProgressEvery
	if progressEvery <= 0 {
		progressEvery = 10
	}

	r.status(models.PhaseImporting, "Importing bookmarks")
	for i, bm := range bookmarks {
		if ctx.Err() != nil {
			return models.ErrCancelled
		}

		category := fallback
		name, assigned := assignments[i]
		if !assigned {
			result := s.classifier.Classify(classifier.Input{URL: bm.URL, Title: bm.Title, Description: bm.Description})
			if result.Category != classifier.OtherLabel {
				name = result.Category
				assigned = true
			}
		}
		if assigned {
			if cat, err := s.storage.CategoryStorage().EnsureCategory(ctx, name); err == nil {
				category = cat
			} else {
				r.logger.Warn().Err(err).Str("category", name).Msg("Category lookup failed, using fallback")
			}
		}

		bookmark := &models.Bookmark{
			URL:          bm.URL,
			Title:        bm.Title,
			Description:  bm.Description,
			SourceFolder: bm.SourceFolder,
			CategoryID:   &category.ID,
		}

		emitNow := (i+1)%progressEvery == 0 || i == len(bookmarks)-1
		_, isNew, err := s.storage.BookmarkStorage().Upsert(ctx, bookmark)
		outcome := func(r *run) { r.failed++ }
		if err == nil && isNew {
			outcome = func(r *run) { r.newBookmarks++ }
		} else if err == nil {
			outcome = func(r *run) { r.updatedBookmarks++ }
		} else {
			r.logger.Warn().Err(err).Str("url", bm.URL).Msg("Bookmark upsert failed")
		}

		r.mu.Lock()
		outcome(r)
		r.processed++
		if emitNow {
			r.emit(models.EventProgress, r.progressLocked(bm.Title, models.PhaseImporting))
		}
		r.mu.Unlock()
	}
	return nil
}

// fallbackCategory resolves where otherwise-unplaceable bookmarks land:
// uncategorized, then other, then the first category, created if the
// store holds none at all.
func (s *Service) fallbackCategory(ctx context.Context, categories []*models.Category) (*models.Category, error) {
	for _, slug := range []string{"uncategorized", "other"} {
		for _, cat := range categories {
			if cat.Slug == slug {
				return cat, nil
			}
		}
	}
	if len(categories) > 0 {
		return categories[0], nil
	}
	return s.storage.CategoryStorage().EnsureCategory(ctx, classifier.OtherLabel)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
