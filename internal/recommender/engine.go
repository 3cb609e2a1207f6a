package recommender

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/temcen/shoprec/pkg/models"
)

var (
	ErrUnknownMode      = errors.New("unknown recommendation mode")
	ErrProductNotFound  = errors.New("product not found")
	ErrInvalidTimeframe = errors.New("invalid timeframe")
)

// Mode selects the personalized pipeline entry point.
type Mode string

const (
	ModeHybrid        Mode = "hybrid"
	ModeContent       Mode = "content"
	ModeCollaborative Mode = "collaborative"
)

// ParseMode maps a request value to a Mode. Empty means hybrid.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeHybrid, nil
	case ModeHybrid, ModeContent, ModeCollaborative:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

type FallbackReason string

const (
	ReasonNoQualifyingInteractions FallbackReason = "no_qualifying_interactions"
	ReasonEmptyProfile             FallbackReason = "empty_profile"
	ReasonCollaborativeFailed      FallbackReason = "collaborative_failed"
	ReasonNoCollaborativeSignal    FallbackReason = "no_collaborative_signal"
	ReasonNoPeers                  FallbackReason = "no_peers"
)

// Fallback records one step taken down the degradation cascade.
type Fallback struct {
	From   models.Source  `json:"from"`
	To     models.Source  `json:"to"`
	Reason FallbackReason `json:"reason"`
}

func (f Fallback) String() string {
	return fmt.Sprintf("%s->%s:%s", f.From, f.To, f.Reason)
}

// Result is a ranked list together with the path that produced it.
type Result struct {
	Items     []models.ScoredRecommendation
	Source    models.Source
	Fallbacks []Fallback
}

// Engine runs the scoring pipeline over snapshots fetched from its accessors.
// It holds no per-request state and is safe for concurrent use.
type Engine struct {
	catalog      Catalog
	interactions InteractionSource
	peers        PeerSource
	config       Config
	logger       *logrus.Logger
	now          func() time.Time
}

type EngineOption func(*Engine)

// WithClock overrides the clock used for trending cutoffs.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func NewEngine(
	catalog Catalog,
	interactions InteractionSource,
	peers PeerSource,
	config Config,
	logger *logrus.Logger,
	opts ...EngineOption,
) *Engine {
	e := &Engine{
		catalog:      catalog,
		interactions: interactions,
		peers:        peers,
		config:       config,
		logger:       logger,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Recommend dispatches to the pipeline named by mode.
func (e *Engine) Recommend(ctx context.Context, userID uuid.UUID, mode Mode, n int) (*Result, error) {
	switch mode {
	case ModeHybrid:
		return e.Hybrid(ctx, userID, n)
	case ModeContent:
		return e.ContentBased(ctx, userID, n)
	case ModeCollaborative:
		return e.Collaborative(ctx, userID, n)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
}

// emptyResult answers a request for zero or fewer items without touching
// the accessors.
func emptyResult(source models.Source) *Result {
	return &Result{Items: []models.ScoredRecommendation{}, Source: source}
}

// userSnapshot is everything the personalized paths read about one user.
type userSnapshot struct {
	history    *models.UserHistory
	qualifying []int64
	interacted map[int64]struct{}
	profile    *UserProfile
}

func (e *Engine) loadUser(ctx context.Context, userID uuid.UUID) (*userSnapshot, error) {
	history, err := e.interactions.UserHistory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user history: %w", err)
	}
	if history == nil {
		history = &models.UserHistory{UserID: userID}
	}

	snap := &userSnapshot{
		history:    history,
		qualifying: QualifyingProductIDs(history),
		interacted: InteractedProductIDs(history),
	}
	if len(snap.qualifying) == 0 {
		snap.profile = newUserProfile()
		return snap, nil
	}

	products, err := e.catalog.ProductsByIDs(ctx, snap.qualifying)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve interacted products: %w", err)
	}
	snap.profile = BuildProfile(history, indexProducts(products), e.config)
	return snap, nil
}

// coldStartReason reports why a snapshot cannot drive personalized scoring.
func coldStartReason(snap *userSnapshot) (FallbackReason, bool) {
	if len(snap.qualifying) == 0 {
		return ReasonNoQualifyingInteractions, true
	}
	if snap.profile.Empty() {
		return ReasonEmptyProfile, true
	}
	return "", false
}

// Hybrid blends the collaborative and content branches, computed
// concurrently. A collaborative failure degrades to content-only results for
// the full n; a content failure is returned to the caller.
func (e *Engine) Hybrid(ctx context.Context, userID uuid.UUID, n int) (*Result, error) {
	if n <= 0 {
		return emptyResult(models.SourceHybrid), nil
	}
	snap, err := e.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if reason, cold := coldStartReason(snap); cold {
		return e.popularFallback(ctx, n, models.SourceHybrid, reason, nil)
	}

	k := overfetch(n, e.config.OverfetchRatio)

	var (
		content       []models.ScoredRecommendation
		collaborative []models.ScoredRecommendation
		collabReason  FallbackReason
		collabErr     error
		g             errgroup.Group
	)
	g.Go(func() error {
		var err error
		content, err = e.rankContent(ctx, snap)
		return err
	})
	g.Go(func() error {
		collaborative, collabReason, collabErr = e.rankCollaborative(ctx, userID, snap, k)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if collabErr != nil {
		e.logger.WithError(collabErr).WithField("user_id", userID).
			Warn("Collaborative branch failed, serving content-only recommendations")
		collabReason = ReasonCollaborativeFailed
	}
	if collabErr != nil || len(collaborative) == 0 {
		fallback := Fallback{From: models.SourceHybrid, To: models.SourceContent, Reason: collabReason}
		e.logFallback(userID, fallback)
		return &Result{
			Items:     truncate(content, n),
			Source:    models.SourceContent,
			Fallbacks: []Fallback{fallback},
		}, nil
	}

	return &Result{
		Items:  Blend(collaborative, truncate(content, k), n, e.config),
		Source: models.SourceHybrid,
	}, nil
}

// ContentBased ranks unseen in-stock products against the user's profile.
func (e *Engine) ContentBased(ctx context.Context, userID uuid.UUID, n int) (*Result, error) {
	if n <= 0 {
		return emptyResult(models.SourceContent), nil
	}
	snap, err := e.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return e.contentResult(ctx, snap, n, models.SourceContent, nil)
}

func (e *Engine) contentResult(
	ctx context.Context,
	snap *userSnapshot,
	n int,
	from models.Source,
	fallbacks []Fallback,
) (*Result, error) {
	if reason, cold := coldStartReason(snap); cold {
		return e.popularFallback(ctx, n, from, reason, fallbacks)
	}

	recs, err := e.rankContent(ctx, snap)
	if err != nil {
		return nil, err
	}
	return &Result{Items: truncate(recs, n), Source: models.SourceContent, Fallbacks: fallbacks}, nil
}

// Collaborative ranks products liked or bought by the user's peers. Without
// peer signal it falls back to content-based scoring.
func (e *Engine) Collaborative(ctx context.Context, userID uuid.UUID, n int) (*Result, error) {
	if n <= 0 {
		return emptyResult(models.SourceCollaborative), nil
	}
	snap, err := e.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(snap.qualifying) == 0 {
		return e.popularFallback(ctx, n, models.SourceCollaborative, ReasonNoQualifyingInteractions, nil)
	}

	recs, reason, err := e.rankCollaborative(ctx, userID, snap, n)
	if err != nil {
		return nil, err
	}
	if len(recs) > 0 {
		return &Result{Items: recs, Source: models.SourceCollaborative}, nil
	}

	fallback := Fallback{From: models.SourceCollaborative, To: models.SourceContent, Reason: reason}
	e.logFallback(userID, fallback)
	return e.contentResult(ctx, snap, n, models.SourceContent, []Fallback{fallback})
}

// Popular is the cold-start ranking over the whole in-stock catalog.
func (e *Engine) Popular(ctx context.Context, n int) (*Result, error) {
	if n <= 0 {
		return emptyResult(models.SourcePopular), nil
	}
	products, err := e.catalog.Products(ctx, ProductFilter{InStockOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return &Result{Items: RankPopular(products, n), Source: models.SourcePopular}, nil
}

// Trending ranks products updated within timeframe by engagement.
func (e *Engine) Trending(ctx context.Context, n int, timeframe string) (*Result, error) {
	window, err := TimeframeDuration(timeframe)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, timeframe)
	}
	if n <= 0 {
		return emptyResult(models.SourceTrending), nil
	}
	products, err := e.catalog.Products(ctx, ProductFilter{InStockOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return &Result{
		Items:  RankTrending(products, e.now().Add(-window), n),
		Source: models.SourceTrending,
	}, nil
}

// Category ranks one category, optionally narrowed to a subcategory.
func (e *Engine) Category(ctx context.Context, category, subcategory string, n int) (*Result, error) {
	if n <= 0 {
		return emptyResult(models.SourceCategory), nil
	}
	products, err := e.catalog.Products(ctx, ProductFilter{
		Category:    category,
		Subcategory: subcategory,
		InStockOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load category %q: %w", category, err)
	}
	return &Result{Items: RankCategory(products, n), Source: models.SourceCategory}, nil
}

// Similar ranks in-stock products resembling productID.
func (e *Engine) Similar(ctx context.Context, productID int64, n int) (*Result, error) {
	if n <= 0 {
		return emptyResult(models.SourceSimilar), nil
	}
	seeds, err := e.catalog.ProductsByIDs(ctx, []int64{productID})
	if err != nil {
		return nil, fmt.Errorf("failed to load product %d: %w", productID, err)
	}
	if len(seeds) == 0 {
		return nil, fmt.Errorf("%w: %d", ErrProductNotFound, productID)
	}

	candidates, err := e.catalog.Products(ctx, ProductFilter{InStockOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return &Result{
		Items:  RankSimilar(seeds[0], candidates, n, e.config.SimilarityThreshold),
		Source: models.SourceSimilar,
	}, nil
}

// Profile summarizes the preference profile the personalized paths would use.
func (e *Engine) Profile(ctx context.Context, userID uuid.UUID) (*models.ProfileSummary, error) {
	snap, err := e.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return Summarize(userID, snap.history, snap.profile), nil
}

func (e *Engine) rankContent(ctx context.Context, snap *userSnapshot) ([]models.ScoredRecommendation, error) {
	candidates, err := e.catalog.Products(ctx, ProductFilter{InStockOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to load content candidates: %w", err)
	}
	return RankContent(snap.profile, candidates, snap.interacted, 0, e.config), nil
}

// rankCollaborative returns a reason alongside an empty result.
func (e *Engine) rankCollaborative(
	ctx context.Context,
	userID uuid.UUID,
	snap *userSnapshot,
	limit int,
) ([]models.ScoredRecommendation, FallbackReason, error) {
	population, err := e.peers.PeerPopulation(ctx, userID, snap.qualifying)
	if err != nil {
		return nil, "", fmt.Errorf("failed to scan peer population: %w", err)
	}

	peers := FindPeers(userID, snap.qualifying, population, e.config)
	if len(peers) == 0 {
		return nil, ReasonNoPeers, nil
	}

	scores := AccumulateCollaborative(snap.interacted, peers, e.config)
	ranked := truncate(RankProductIDs(scores), 2*limit)
	if len(ranked) == 0 {
		return nil, ReasonNoCollaborativeSignal, nil
	}

	ids := make([]int64, len(ranked))
	for i, ps := range ranked {
		ids[i] = ps.ID
	}
	products, err := e.catalog.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve collaborative products: %w", err)
	}

	recs := ResolveCollaborative(ranked, products, limit)
	if len(recs) == 0 {
		return nil, ReasonNoCollaborativeSignal, nil
	}
	return recs, "", nil
}

func (e *Engine) popularFallback(
	ctx context.Context,
	n int,
	from models.Source,
	reason FallbackReason,
	fallbacks []Fallback,
) (*Result, error) {
	result, err := e.Popular(ctx, n)
	if err != nil {
		return nil, err
	}
	fallback := Fallback{From: from, To: models.SourcePopular, Reason: reason}
	e.logger.WithFields(logrus.Fields{
		"from":   fallback.From,
		"to":     fallback.To,
		"reason": fallback.Reason,
	}).Debug("Falling back to popular products")
	result.Fallbacks = append(fallbacks, fallback)
	return result, nil
}

func (e *Engine) logFallback(userID uuid.UUID, f Fallback) {
	e.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"from":    f.From,
		"to":      f.To,
		"reason":  f.Reason,
	}).Debug("Recommendation fallback")
}
