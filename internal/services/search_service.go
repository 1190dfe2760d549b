package services

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/smartpark/parking-backend/internal/models"
)

var spotNumberPattern = regexp.MustCompile(`^[0-9]+$`)

// SearchService answers the admin search form
type SearchService struct {
	store  SearchStore
	logger *logrus.Logger
}

// NewSearchService creates a new search service
func NewSearchService(store SearchStore, logger *logrus.Logger) *SearchService {
	return &SearchService{
		store:  store,
		logger: logger,
	}
}

// AdminSearch runs one search by spot number, vehicle number fragment or location fragment.
// Fragment matching is case-sensitive. Storage failures are logged and reported as a generic search error.
func (s *SearchService) AdminSearch(ctx context.Context, identity models.Identity, rawType, rawQuery string) (*models.SearchResults, error) {
	if err := identity.RequireRole(models.RoleAdmin); err != nil {
		return nil, err
	}

	searchType, ok := models.ParseSearchType(strings.TrimSpace(rawType))
	query := strings.TrimSpace(rawQuery)
	if !ok || query == "" {
		return nil, models.ErrInvalidSearchQuery
	}

	results := &models.SearchResults{
		SearchType: searchType,
		Query:      query,
	}

	switch searchType {
	case models.SearchBySpotNumber:
		if !spotNumberPattern.MatchString(query) {
			return nil, models.NewValidationError("Spot number must be a whole number")
		}
		spotNumber, err := strconv.Atoi(query)
		if err != nil {
			return nil, models.NewValidationError("Spot number must be a whole number")
		}
		spots, err := s.store.FindSpotsByNumber(ctx, spotNumber)
		if err != nil {
			return nil, s.searchFailed(searchType, query, err)
		}
		results.Spots = spots
		results.Count = len(spots)

	case models.SearchByVehicle:
		vehicles, err := s.store.FindActiveByVehicle(ctx, query)
		if err != nil {
			return nil, s.searchFailed(searchType, query, err)
		}
		results.Vehicles = vehicles
		results.Count = len(vehicles)

	case models.SearchByLocation:
		lots, err := s.store.FindLotsByLocation(ctx, query)
		if err != nil {
			return nil, s.searchFailed(searchType, query, err)
		}
		results.Lots = lots
		results.Count = len(lots)
	}

	return results, nil
}

func (s *SearchService) searchFailed(searchType models.SearchType, query string, err error) error {
	s.logger.WithFields(logrus.Fields{
		"search_type": searchType,
		"query":       query,
		"error":       err.Error(),
	}).Error("Admin search failed")
	return models.NewSearchError("")
}
