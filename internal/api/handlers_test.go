package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/wordmon-api/internal/api/shared"
	"github.com/phrazzld/wordmon-api/internal/domain"
	"github.com/phrazzld/wordmon-api/internal/domain/battle"
	rules "github.com/phrazzld/wordmon-api/internal/domain/evolution"
	"github.com/phrazzld/wordmon-api/internal/service"
	"github.com/phrazzld/wordmon-api/internal/service/arena"
	"github.com/phrazzld/wordmon-api/internal/service/dex"
	"github.com/phrazzld/wordmon-api/internal/service/evolution"
	"github.com/phrazzld/wordmon-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEntry(t *testing.T, userID uuid.UUID, word string) *domain.WordEntry {
	t.Helper()
	e, err := domain.NewWordEntry(userID, word, domain.RarityRare, testNow)
	require.NoError(t, err)
	return e
}

type fakeDex struct {
	entry   *domain.WordEntry
	created bool
	list    []*domain.WordEntry
	err     error
	gotWord string
	gotSort dex.SortOrder
}

func (f *fakeDex) Capture(_ context.Context, _ uuid.UUID, word string) (*domain.WordEntry, bool, error) {
	f.gotWord = word
	return f.entry, f.created, f.err
}

func (f *fakeDex) List(_ context.Context, _ uuid.UUID, order dex.SortOrder) ([]*domain.WordEntry, error) {
	f.gotSort = order
	return f.list, f.err
}

func (f *fakeDex) Get(context.Context, uuid.UUID, uuid.UUID) (*domain.WordEntry, error) {
	return f.entry, f.err
}

func (f *fakeDex) Delete(context.Context, uuid.UUID, uuid.UUID) error { return f.err }

type fakeReview struct {
	entry      *domain.WordEntry
	due        []*domain.WordEntry
	err        error
	gotLimit   int
	gotCorrect bool
}

func (f *fakeReview) DueQueue(_ context.Context, _ uuid.UUID, limit int) ([]*domain.WordEntry, error) {
	f.gotLimit = limit
	return f.due, f.err
}

func (f *fakeReview) SubmitAnswer(_ context.Context, _, _ uuid.UUID, correct bool) (*domain.WordEntry, error) {
	f.gotCorrect = correct
	return f.entry, f.err
}

type fakeEvolution struct {
	entry     *domain.WordEntry
	options   []rules.BranchCandidate
	branch    *evolution.BranchResult
	fusion    *evolution.FusionResult
	move      string
	err       error
	gotBranch *string
}

func (f *fakeEvolution) Evolve(context.Context, uuid.UUID, uuid.UUID) (*domain.WordEntry, error) {
	return f.entry, f.err
}

func (f *fakeEvolution) BranchOptions(context.Context, uuid.UUID, uuid.UUID) ([]rules.BranchCandidate, error) {
	return f.options, f.err
}

func (f *fakeEvolution) ChooseBranch(_ context.Context, _, _ uuid.UUID, word *string) (*evolution.BranchResult, error) {
	f.gotBranch = word
	return f.branch, f.err
}

func (f *fakeEvolution) FusionCandidates(context.Context, uuid.UUID, uuid.UUID) ([]*domain.WordEntry, error) {
	return nil, f.err
}

func (f *fakeEvolution) Fuse(context.Context, uuid.UUID, uuid.UUID) (*evolution.FusionResult, error) {
	return f.fusion, f.err
}

func (f *fakeEvolution) HiddenMove(context.Context, uuid.UUID, uuid.UUID) (string, error) {
	return f.move, f.err
}

type fakeArena struct {
	profile *domain.Profile
	outcome *arena.Outcome
	err     error
	gotTeam []uuid.UUID
}

func (f *fakeArena) Profile(context.Context, uuid.UUID) (*domain.Profile, error) {
	return f.profile, f.err
}

func (f *fakeArena) SetTeam(_ context.Context, _ uuid.UUID, ids []uuid.UUID) (*domain.Profile, error) {
	f.gotTeam = ids
	return f.profile, f.err
}

func (f *fakeArena) Battle(context.Context, uuid.UUID) (*arena.Outcome, error) {
	return f.outcome, f.err
}

// newRouter mounts the handlers under the same paths the server uses and
// authenticates every request as userID when it is not nil.
func newRouter(userID uuid.UUID, entries *EntryHandler, evo *EvolutionHandler, ar *ArenaHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := shared.SetTraceID(req.Context())
			if userID != uuid.Nil {
				ctx = shared.SetUserID(ctx, userID)
			}
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	if entries != nil {
		r.Post("/entries", entries.Capture)
		r.Get("/entries", entries.List)
		r.Get("/entries/{id}", entries.Get)
		r.Delete("/entries/{id}", entries.Delete)
		r.Get("/quiz/due", entries.DueQueue)
		r.Post("/entries/{id}/review", entries.Review)
	}
	if evo != nil {
		r.Post("/entries/{id}/evolve", evo.Evolve)
		r.Get("/entries/{id}/branches", evo.BranchOptions)
		r.Post("/entries/{id}/branch", evo.ChooseBranch)
		r.Get("/entries/{id}/fusion", evo.FusionCandidates)
		r.Post("/entries/{id}/fuse", evo.Fuse)
		r.Get("/entries/{id}/hidden-move", evo.HiddenMove)
	}
	if ar != nil {
		r.Get("/profile", ar.Profile)
		r.Put("/profile/team", ar.SetTeam)
		r.Post("/battles", ar.Battle)
	}
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) shared.ErrorResponse {
	t.Helper()
	var resp shared.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestEntryHandler_Capture(t *testing.T) {
	userID := uuid.New()
	entry := newTestEntry(t, userID, "lucid")

	tests := []struct {
		name       string
		user       uuid.UUID
		body       string
		created    bool
		err        error
		wantStatus int
		wantError  string
	}{
		{"created", userID, `{"word":"lucid"}`, true, nil, http.StatusCreated, ""},
		{"already captured", userID, `{"word":"lucid"}`, false, nil, http.StatusOK, ""},
		{"no user", uuid.Nil, `{"word":"lucid"}`, false, nil, http.StatusUnauthorized, "User ID not found or invalid"},
		{"empty body", userID, "", false, nil, http.StatusBadRequest, "Invalid request format"},
		{"missing word", userID, `{}`, false, nil, http.StatusBadRequest, "Invalid word: required field"},
		{"word too long", userID, `{"word":"` + strings.Repeat("a", 65) + `"}`, false, nil, http.StatusBadRequest, "Invalid word: too long"},
		{
			"domain validation",
			userID, `{"word":"   "}`, false,
			service.NewServiceError("dex", "capture", "invalid word", domain.ErrEntryWordEmpty),
			http.StatusBadRequest, "Validation error: word cannot be empty",
		},
		{
			"store failure",
			userID, `{"word":"lucid"}`, false,
			service.NewServiceError("dex", "capture", "create failed", domain.ErrStoreWriteFailure),
			http.StatusServiceUnavailable, "Storage is temporarily unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fd := &fakeDex{entry: entry, created: tt.created, err: tt.err}
			h := newRouter(tt.user, NewEntryHandler(fd, &fakeReview{}, discardLogger()), nil, nil)

			rec := do(t, h, http.MethodPost, "/entries", tt.body)
			require.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantStatus >= 400 {
				resp := decodeError(t, rec)
				assert.NotEmpty(t, resp.TraceID)
				if tt.wantError != "" {
					assert.Equal(t, tt.wantError, resp.Error)
				}
				return
			}

			var resp CaptureResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.created, resp.Created)
			assert.Equal(t, "lucid", resp.Entry.Word)
			assert.Equal(t, battle.DefaultCalculator{}.Stats(entry.Combatant()), resp.Entry.Stats)
			assert.Equal(t, "lucid", fd.gotWord)
		})
	}
}

func TestEntryHandler_ListGetDelete(t *testing.T) {
	userID := uuid.New()
	entry := newTestEntry(t, userID, "lucid")

	t.Run("list passes sort order", func(t *testing.T) {
		fd := &fakeDex{list: []*domain.WordEntry{entry}}
		h := newRouter(userID, NewEntryHandler(fd, &fakeReview{}, discardLogger()), nil, nil)

		rec := do(t, h, http.MethodGet, "/entries?sort=rarity", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, dex.SortRarity, fd.gotSort)

		var resp []EntryResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.Len(t, resp, 1)
		assert.Equal(t, entry.ID, resp[0].ID)
	})

	t.Run("list rejects unknown sort", func(t *testing.T) {
		h := newRouter(userID, NewEntryHandler(&fakeDex{}, &fakeReview{}, discardLogger()), nil, nil)
		rec := do(t, h, http.MethodGet, "/entries?sort=power", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("list of nothing is an empty array", func(t *testing.T) {
		h := newRouter(userID, NewEntryHandler(&fakeDex{}, &fakeReview{}, discardLogger()), nil, nil)
		rec := do(t, h, http.MethodGet, "/entries", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	getTests := []struct {
		name       string
		path       string
		err        error
		wantStatus int
	}{
		{"found", "/entries/" + entry.ID.String(), nil, http.StatusOK},
		{"invalid id", "/entries/not-a-uuid", nil, http.StatusBadRequest},
		{"not found", "/entries/" + entry.ID.String(), store.ErrWordEntryNotFound, http.StatusNotFound},
		{"not owned", "/entries/" + entry.ID.String(), service.ErrNotOwned, http.StatusForbidden},
	}
	for _, tt := range getTests {
		t.Run("get "+tt.name, func(t *testing.T) {
			h := newRouter(userID, NewEntryHandler(&fakeDex{entry: entry, err: tt.err}, &fakeReview{}, discardLogger()), nil, nil)
			rec := do(t, h, http.MethodGet, tt.path, "")
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}

	t.Run("delete", func(t *testing.T) {
		h := newRouter(userID, NewEntryHandler(&fakeDex{}, &fakeReview{}, discardLogger()), nil, nil)
		rec := do(t, h, http.MethodDelete, "/entries/"+entry.ID.String(), "")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.String())
	})
}

func TestEntryHandler_Quiz(t *testing.T) {
	userID := uuid.New()
	entry := newTestEntry(t, userID, "lucid")

	t.Run("due queue passes limit", func(t *testing.T) {
		fr := &fakeReview{due: []*domain.WordEntry{entry}}
		h := newRouter(userID, NewEntryHandler(&fakeDex{}, fr, discardLogger()), nil, nil)

		rec := do(t, h, http.MethodGet, "/quiz/due?limit=7", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 7, fr.gotLimit)
	})

	for _, limit := range []string{"-1", "ten"} {
		t.Run("bad limit "+limit, func(t *testing.T) {
			h := newRouter(userID, NewEntryHandler(&fakeDex{}, &fakeReview{}, discardLogger()), nil, nil)
			rec := do(t, h, http.MethodGet, "/quiz/due?limit="+limit, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	path := "/entries/" + entry.ID.String() + "/review"

	t.Run("review false answer", func(t *testing.T) {
		fr := &fakeReview{entry: entry, gotCorrect: true}
		h := newRouter(userID, NewEntryHandler(&fakeDex{}, fr, discardLogger()), nil, nil)

		rec := do(t, h, http.MethodPost, path, `{"correct":false}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, fr.gotCorrect)
	})

	t.Run("review requires correct", func(t *testing.T) {
		h := newRouter(userID, NewEntryHandler(&fakeDex{}, &fakeReview{entry: entry}, discardLogger()), nil, nil)
		rec := do(t, h, http.MethodPost, path, `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("review of ineligible entry", func(t *testing.T) {
		fr := &fakeReview{err: domain.ErrIneligibleTransition}
		h := newRouter(userID, NewEntryHandler(&fakeDex{}, fr, discardLogger()), nil, nil)
		rec := do(t, h, http.MethodPost, path, `{"correct":true}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestEvolutionHandler(t *testing.T) {
	userID := uuid.New()
	entry := newTestEntry(t, userID, "lucid")
	base := "/entries/" + entry.ID.String()

	t.Run("evolve", func(t *testing.T) {
		h := newRouter(userID, nil, NewEvolutionHandler(&fakeEvolution{entry: entry}, discardLogger()), nil)
		rec := do(t, h, http.MethodPost, base+"/evolve", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("evolve ineligible", func(t *testing.T) {
		fe := &fakeEvolution{err: service.NewServiceError("evolution", "evolve", "not ready", domain.ErrIneligibleTransition)}
		h := newRouter(userID, nil, NewEvolutionHandler(fe, discardLogger()), nil)
		rec := do(t, h, http.MethodPost, base+"/evolve", "")
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "Entry is not eligible for this transition", decodeError(t, rec).Error)
	})

	t.Run("branch options", func(t *testing.T) {
		fe := &fakeEvolution{options: []rules.BranchCandidate{{Word: "lucidity", Branch: domain.BranchAdjective}}}
		h := newRouter(userID, nil, NewEvolutionHandler(fe, discardLogger()), nil)
		rec := do(t, h, http.MethodGet, base+"/branches", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp BranchOptionsResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.Len(t, resp.Options, 1)
		assert.Equal(t, "lucidity", resp.Options[0].Word)
	})

	t.Run("choose branch with word", func(t *testing.T) {
		merged := uuid.New()
		fe := &fakeEvolution{branch: &evolution.BranchResult{Entry: entry, MergedID: &merged}}
		h := newRouter(userID, nil, NewEvolutionHandler(fe, discardLogger()), nil)

		rec := do(t, h, http.MethodPost, base+"/branch", `{"word":"lucidity"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, fe.gotBranch)
		assert.Equal(t, "lucidity", *fe.gotBranch)

		var resp BranchResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.NotNil(t, resp.MergedID)
		assert.Equal(t, merged, *resp.MergedID)
	})

	t.Run("choose branch without word", func(t *testing.T) {
		fe := &fakeEvolution{branch: &evolution.BranchResult{Entry: entry}}
		h := newRouter(userID, nil, NewEvolutionHandler(fe, discardLogger()), nil)

		rec := do(t, h, http.MethodPost, base+"/branch", `{"word":null}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, fe.gotBranch)
		assert.NotContains(t, rec.Body.String(), "merged_id")
	})

	t.Run("fusion candidates empty", func(t *testing.T) {
		h := newRouter(userID, nil, NewEvolutionHandler(&fakeEvolution{}, discardLogger()), nil)
		rec := do(t, h, http.MethodGet, base+"/fusion", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("fuse", func(t *testing.T) {
		consumed := []uuid.UUID{entry.ID, uuid.New()}
		fe := &fakeEvolution{fusion: &evolution.FusionResult{Entry: entry, Consumed: consumed}}
		h := newRouter(userID, nil, NewEvolutionHandler(fe, discardLogger()), nil)

		rec := do(t, h, http.MethodPost, base+"/fuse", "")
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp FusionResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, consumed, resp.Consumed)
	})

	t.Run("fuse without candidates", func(t *testing.T) {
		fe := &fakeEvolution{err: domain.ErrNoFusionCandidates}
		h := newRouter(userID, nil, NewEvolutionHandler(fe, discardLogger()), nil)
		rec := do(t, h, http.MethodPost, base+"/fuse", "")
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "No fusion candidates", decodeError(t, rec).Error)
	})

	t.Run("hidden move", func(t *testing.T) {
		fe := &fakeEvolution{move: "Lucid Surge"}
		h := newRouter(userID, nil, NewEvolutionHandler(fe, discardLogger()), nil)
		rec := do(t, h, http.MethodGet, base+"/hidden-move", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp HiddenMoveResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, entry.ID, resp.EntryID)
		assert.Equal(t, "Lucid Surge", resp.HiddenMove)
	})
}

func TestArenaHandler(t *testing.T) {
	userID := uuid.New()
	profile, err := domain.NewProfile(userID, "ada", testNow)
	require.NoError(t, err)

	t.Run("profile", func(t *testing.T) {
		h := newRouter(userID, nil, nil, NewArenaHandler(&fakeArena{profile: profile}, discardLogger()))
		rec := do(t, h, http.MethodGet, "/profile", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp domain.Profile
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, userID, resp.UserID)
	})

	t.Run("set team", func(t *testing.T) {
		fa := &fakeArena{profile: profile}
		h := newRouter(userID, nil, nil, NewArenaHandler(fa, discardLogger()))
		id := uuid.New()

		rec := do(t, h, http.MethodPut, "/profile/team", `{"entry_ids":["`+id.String()+`"]}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []uuid.UUID{id}, fa.gotTeam)
	})

	t.Run("set empty team", func(t *testing.T) {
		fa := &fakeArena{profile: profile}
		h := newRouter(userID, nil, nil, NewArenaHandler(fa, discardLogger()))
		rec := do(t, h, http.MethodPut, "/profile/team", `{}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []uuid.UUID{}, fa.gotTeam)
	})

	t.Run("team too large", func(t *testing.T) {
		ids := make([]string, domain.MaxTeamSize+1)
		for i := range ids {
			ids[i] = `"` + uuid.NewString() + `"`
		}
		h := newRouter(userID, nil, nil, NewArenaHandler(&fakeArena{profile: profile}, discardLogger()))
		rec := do(t, h, http.MethodPut, "/profile/team", `{"entry_ids":[`+strings.Join(ids, ",")+`]}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid team member", func(t *testing.T) {
		fa := &fakeArena{err: domain.ErrInvalidTeam}
		h := newRouter(userID, nil, nil, NewArenaHandler(fa, discardLogger()))
		rec := do(t, h, http.MethodPut, "/profile/team", `{"entry_ids":["`+uuid.NewString()+`"]}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("battle", func(t *testing.T) {
		outcome := &arena.Outcome{
			Result:   &battle.Result{Winner: battle.SidePlayer, PlayerWon: true, Turns: []battle.Turn{}},
			Opponent: arena.Opponent{Bot: true, Team: []domain.Combatant{}},
			Rating:   battle.RatingResult{Rating: 200, Delta: 200, Wins: 1, Placement: true},
			Profile:  profile,
		}
		h := newRouter(userID, nil, nil, NewArenaHandler(&fakeArena{outcome: outcome}, discardLogger()))

		rec := do(t, h, http.MethodPost, "/battles", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp arena.Outcome
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.True(t, resp.Result.PlayerWon)
		assert.True(t, resp.Opponent.Bot)
		assert.Equal(t, 200, resp.Rating.Delta)
	})
}

func TestNewHandlers_PanicOnMissingDependencies(t *testing.T) {
	assert.Panics(t, func() { NewEntryHandler(nil, &fakeReview{}, discardLogger()) })
	assert.Panics(t, func() { NewEntryHandler(&fakeDex{}, &fakeReview{}, nil) })
	assert.Panics(t, func() { NewEvolutionHandler(nil, discardLogger()) })
	assert.Panics(t, func() { NewArenaHandler(&fakeArena{}, nil) })
}
