package services

import (
	"context"
	"errors"
	"strings"

	"github.com/nazhim/markaz-api/internal/models"
	"github.com/nazhim/markaz-api/internal/repository"

	"gorm.io/gorm"
)

// VehicleService manages the vehicle registry backing the fuel sub-ledger
type VehicleService struct {
	repo repository.VehicleRepository
}

// NewVehicleService creates a new vehicle service
func NewVehicleService(repo repository.VehicleRepository) *VehicleService {
	return &VehicleService{repo: repo}
}

// VehicleInput carries the fields of a new vehicle
type VehicleInput struct {
	Name  string `json:"name"`
	Plate string `json:"plate"`
}

func (s *VehicleService) Create(ctx context.Context, in VehicleInput) (*models.Vehicle, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Plate = strings.TrimSpace(in.Plate)
	if in.Name == "" {
		return nil, ErrValidation("name", "name is required")
	}

	vehicle := &models.Vehicle{Name: in.Name, Plate: in.Plate}
	if err := s.repo.Create(ctx, vehicle); err != nil {
		return nil, ErrPersistence(err)
	}
	return vehicle, nil
}

func (s *VehicleService) List(ctx context.Context) ([]models.Vehicle, error) {
	vehicles, err := s.repo.List(ctx)
	if err != nil {
		return nil, ErrPersistence(err)
	}
	return vehicles, nil
}

func (s *VehicleService) Find(ctx context.Context, id uint) (*models.Vehicle, error) {
	vehicle, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound("vehicle")
		}
		return nil, ErrPersistence(err)
	}
	return vehicle, nil
}
