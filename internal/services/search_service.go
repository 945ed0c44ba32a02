package services

import (
	"context"
	"math"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sowmiyat3004/Renter-sub001/internal/apperr"
	"github.com/sowmiyat3004/Renter-sub001/internal/config"
	"github.com/sowmiyat3004/Renter-sub001/internal/db"
	"github.com/sowmiyat3004/Renter-sub001/internal/geo"
	"github.com/sowmiyat3004/Renter-sub001/internal/models"
)

// ListingDistance pairs a listing with its exact distance from the search
// center.
type ListingDistance struct {
	models.Listing `bson:",inline"`
	DistanceKm     float64 `json:"distance_km"`
}

// ISearchService defines the proximity search interface. A nil radius means
// "use the configured default"; an explicit zero restricts results to
// listings at exactly the center point.
type ISearchService interface {
	SearchNearby(ctx context.Context, center geo.Point, radiusKm *float64, limit int) ([]ListingDistance, error)
}

// searchService implements ISearchService with a two-phase filter: a
// bounding-box range query narrows the candidate set, then the exact
// Haversine distance decides membership and ordering.
//
// The box query fetches the FULL in-box candidate set rather than an
// over-fetched sample. A bounded over-fetch (e.g. 2x limit) can silently
// drop true nearest neighbors in dense regions when the box holds more
// candidates than the fetch ceiling; fetching everything in the box trades
// memory for correctness, which is acceptable at the row counts a bounding
// box of urban radius produces.
type searchService struct {
	db       *mongo.Database
	cfg      *config.Config
	settings ISettingsService
}

// NewSearchService creates a new SearchService. settings may be nil, in
// which case the .env defaults apply unconditionally.
func NewSearchService(database *mongo.Database, cfg *config.Config, settings ISettingsService) ISearchService {
	return &searchService{db: database, cfg: cfg, settings: settings}
}

// SearchNearby returns APPROVED listings within radiusKm of center, nearest
// first, at most limit entries. Defaults: radius 10 km, limit 20. Ties in
// distance are broken by ID so repeated identical queries return identical
// orderings.
func (s *searchService) SearchNearby(ctx context.Context, center geo.Point, radiusKm *float64, limit int) ([]ListingDistance, error) {
	if !center.Valid() {
		return nil, apperr.InvalidArgument("search center is missing or out of range: lat=%v lng=%v", center.Lat, center.Lng)
	}
	radius := s.cfg.SearchDefaultRadiusKm
	defaultLimit := s.cfg.SearchDefaultLimit
	maxLimit := s.cfg.SearchMaxLimit
	if s.settings != nil {
		radius = s.settings.GetFloat64(ctx, "search.default_radius_km", radius)
		defaultLimit = s.settings.GetInt(ctx, "search.default_limit", defaultLimit)
		maxLimit = s.settings.GetInt(ctx, "search.max_limit", maxLimit)
	}
	if radiusKm != nil {
		if math.IsNaN(*radiusKm) || *radiusKm < 0 {
			return nil, apperr.InvalidArgument("radius must be a non-negative number, got %v", *radiusKm)
		}
		radius = *radiusKm
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}

	box := geo.BoxAround(center, radius)

	filter := bson.M{
		"status": models.StatusApproved,
		"lat":    bson.M{"$gte": box.MinLat, "$lte": box.MaxLat},
	}
	// Longitude bounds are advisory: once the box spans the full range
	// (polar clamp), the clause adds nothing and is omitted.
	if box.MinLng > -180 || box.MaxLng < 180 {
		filter["lng"] = bson.M{"$gte": box.MinLng, "$lte": box.MaxLng}
	}

	cursor, err := s.db.Collection(db.CollListings).Find(ctx, filter)
	if err != nil {
		return nil, apperr.Internal(err, "failed to execute proximity search query")
	}
	defer cursor.Close(ctx)

	var candidates []models.Listing
	if err = cursor.All(ctx, &candidates); err != nil {
		return nil, apperr.Internal(err, "failed to decode proximity search candidates")
	}

	results := make([]ListingDistance, 0, len(candidates))
	for _, candidate := range candidates {
		d := geo.Distance(center, geo.Point{Lat: candidate.Lat, Lng: candidate.Lng})
		if d > radius {
			continue
		}
		results = append(results, ListingDistance{Listing: candidate, DistanceKm: d})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].DistanceKm != results[j].DistanceKm {
			return results[i].DistanceKm < results[j].DistanceKm
		}
		return results[i].ID.Hex() < results[j].ID.Hex()
	})

	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}
