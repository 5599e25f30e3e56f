package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// DefaultServiceDuration is applied when a booked service is missing from the catalog.
const DefaultServiceDuration = 30

// DefaultServices is installed by SeedDefaults when the catalog is empty.
var DefaultServices = []ServiceInput{
	{Name: "01 - Alimentos (pensão alimentícia)", DurationMinutes: 60},
	{Name: "23 - RG", DurationMinutes: 15},
	{Name: "20 - Coleta de Exame de DNA", DurationMinutes: 30},
}

// DefaultAddress is installed by SeedDefaults when no address exists.
const DefaultAddress = "Av. Pres. Kennedy, n.º 900, Bairro Centro, Telêmaco Borba"

// ServiceCatalog captures the persistence operations for the shared service catalog.
type ServiceCatalog interface {
	CreateService(ctx context.Context, service Service) (Service, error)
	GetService(ctx context.Context, name string) (Service, error)
	ListServices(ctx context.Context) ([]Service, error)
	DeleteService(ctx context.Context, name string) error
	ReplaceServices(ctx context.Context, services []Service) error
}

// AddressRepository captures the persistence operations for reusable addresses.
type AddressRepository interface {
	CreateAddress(ctx context.Context, address Address) (Address, error)
	ListAddresses(ctx context.Context) ([]Address, error)
	DeleteAddress(ctx context.Context, id string) error
}

// CatalogService manages the service catalog and the address list.
type CatalogService struct {
	services    ServiceCatalog
	addresses   AddressRepository
	cache       AvailabilityCache
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewCatalogService wires dependencies for the catalog service.
func NewCatalogService(services ServiceCatalog, addresses AddressRepository, cache AvailabilityCache, idGenerator func() string, now func() time.Time) *CatalogService {
	return NewCatalogServiceWithLogger(services, addresses, cache, idGenerator, now, nil)
}

// NewCatalogServiceWithLogger wires dependencies for the catalog service with a specific logger.
func NewCatalogServiceWithLogger(services ServiceCatalog, addresses AddressRepository, cache AvailabilityCache, idGenerator func() string, now func() time.Time, logger *slog.Logger) *CatalogService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &CatalogService{
		services:    services,
		addresses:   addresses,
		cache:       cache,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *CatalogService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CatalogService", operation, attrs...)
}

// ListServices returns the catalog ordered by numeric name prefix.
func (s *CatalogService) ListServices(ctx context.Context) ([]Service, error) {
	if s == nil {
		return nil, fmt.Errorf("CatalogService is nil")
	}
	if s.services == nil {
		return nil, nil
	}
	services, err := s.services.ListServices(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	out := make([]Service, len(services))
	copy(out, services)
	SortServices(out)
	return out, nil
}

// CreateService adds a catalog entry for administrators.
func (s *CatalogService) CreateService(ctx context.Context, principal Principal, input ServiceInput) (service Service, err error) {
	if s == nil {
		return Service{}, fmt.Errorf("CatalogService is nil")
	}
	if s.services == nil {
		return Service{}, fmt.Errorf("service catalog not configured")
	}

	normalized := normalizeServiceInput(input)
	logger := s.loggerWith(ctx, "CreateService", "principal_id", principal.UserID, "service_name", normalized.Name)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create service", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "service created")
	}()

	if !principal.IsAdmin {
		return Service{}, ErrUnauthorized
	}
	if vErr := validateServiceInput("", normalized); vErr.HasErrors() {
		return Service{}, vErr
	}

	now := s.now()
	service, err = s.services.CreateService(ctx, Service{
		Name:            normalized.Name,
		DurationMinutes: normalized.DurationMinutes,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return Service{}, mapRepoError(err)
	}
	s.invalidateAll(ctx, logger)
	return service, nil
}

// DeleteService removes a catalog entry for administrators.
func (s *CatalogService) DeleteService(ctx context.Context, principal Principal, name string) (err error) {
	if s == nil {
		return fmt.Errorf("CatalogService is nil")
	}
	if s.services == nil {
		return fmt.Errorf("service catalog not configured")
	}

	name = strings.TrimSpace(name)
	logger := s.loggerWith(ctx, "DeleteService", "principal_id", principal.UserID, "service_name", name)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete service", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "service deleted")
	}()

	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	if err = s.services.DeleteService(ctx, name); err != nil {
		return mapRepoError(err)
	}
	s.invalidateAll(ctx, logger)
	return nil
}

// ReplaceServices swaps the whole catalog for administrators.
func (s *CatalogService) ReplaceServices(ctx context.Context, principal Principal, inputs []ServiceInput) (services []Service, err error) {
	if s == nil {
		return nil, fmt.Errorf("CatalogService is nil")
	}
	if s.services == nil {
		return nil, fmt.Errorf("service catalog not configured")
	}

	logger := s.loggerWith(ctx, "ReplaceServices", "principal_id", principal.UserID, "service_count", len(inputs))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to replace services", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "services replaced")
	}()

	if !principal.IsAdmin {
		return nil, ErrUnauthorized
	}

	replacement, vErr := s.buildServices(inputs)
	if vErr.HasErrors() {
		return nil, vErr
	}
	if err = s.services.ReplaceServices(ctx, replacement); err != nil {
		return nil, mapRepoError(err)
	}
	s.invalidateAll(ctx, logger)

	SortServices(replacement)
	return replacement, nil
}

// ListAddresses returns every stored address.
func (s *CatalogService) ListAddresses(ctx context.Context) ([]Address, error) {
	if s == nil {
		return nil, fmt.Errorf("CatalogService is nil")
	}
	if s.addresses == nil {
		return nil, nil
	}
	addresses, err := s.addresses.ListAddresses(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return addresses, nil
}

// CreateAddress stores a new address label for administrators.
func (s *CatalogService) CreateAddress(ctx context.Context, principal Principal, label string) (address Address, err error) {
	if s == nil {
		return Address{}, fmt.Errorf("CatalogService is nil")
	}
	if s.addresses == nil {
		return Address{}, fmt.Errorf("address repository not configured")
	}

	label = strings.TrimSpace(label)
	logger := s.loggerWith(ctx, "CreateAddress", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create address", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("address_id", address.ID).InfoContext(ctx, "address created")
	}()

	if !principal.IsAdmin {
		return Address{}, ErrUnauthorized
	}
	if label == "" {
		vErr := &ValidationError{}
		vErr.add("label", "label is required")
		return Address{}, vErr
	}

	address, err = s.addresses.CreateAddress(ctx, Address{ID: s.idGenerator(), Label: label, CreatedAt: s.now()})
	if err != nil {
		return Address{}, mapRepoError(err)
	}
	return address, nil
}

// DeleteAddress removes an address for administrators. Agendas keep their
// copied address text.
func (s *CatalogService) DeleteAddress(ctx context.Context, principal Principal, id string) (err error) {
	if s == nil {
		return fmt.Errorf("CatalogService is nil")
	}
	if s.addresses == nil {
		return fmt.Errorf("address repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteAddress", "principal_id", principal.UserID, "address_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete address", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "address deleted")
	}()

	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	if err = s.addresses.DeleteAddress(ctx, id); err != nil {
		return mapRepoError(err)
	}
	return nil
}

// SeedDefaults installs the default services and address into empty stores.
func (s *CatalogService) SeedDefaults(ctx context.Context) (err error) {
	if s == nil {
		return fmt.Errorf("CatalogService is nil")
	}

	logger := s.loggerWith(ctx, "SeedDefaults")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to seed catalog", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if s.services != nil {
		var existing []Service
		if existing, err = s.services.ListServices(ctx); err != nil {
			return mapRepoError(err)
		}
		if len(existing) == 0 {
			defaults, vErr := s.buildServices(DefaultServices)
			if vErr.HasErrors() {
				return vErr
			}
			if err = s.services.ReplaceServices(ctx, defaults); err != nil {
				return mapRepoError(err)
			}
			logger.InfoContext(ctx, "default services installed", "service_count", len(defaults))
		}
	}

	if s.addresses != nil {
		var existing []Address
		if existing, err = s.addresses.ListAddresses(ctx); err != nil {
			return mapRepoError(err)
		}
		if len(existing) == 0 {
			if _, err = s.addresses.CreateAddress(ctx, Address{ID: s.idGenerator(), Label: DefaultAddress, CreatedAt: s.now()}); err != nil {
				return mapRepoError(err)
			}
			logger.InfoContext(ctx, "default address installed")
		}
	}
	return nil
}

func (s *CatalogService) buildServices(inputs []ServiceInput) ([]Service, *ValidationError) {
	vErr := &ValidationError{}
	seen := make(map[string]int, len(inputs))
	now := s.now()
	out := make([]Service, 0, len(inputs))
	for i, input := range inputs {
		normalized := normalizeServiceInput(input)
		prefix := fmt.Sprintf("services[%d].", i)
		vErr.merge(validateServiceInput(prefix, normalized))

		key := strings.ToLower(normalized.Name)
		if first, ok := seen[key]; ok && key != "" {
			vErr.add(prefix+"name", fmt.Sprintf("duplicates services[%d]", first))
		} else {
			seen[key] = i
		}
		out = append(out, Service{
			Name:            normalized.Name,
			DurationMinutes: normalized.DurationMinutes,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}
	return out, vErr
}

func (s *CatalogService) invalidateAll(ctx context.Context, logger *slog.Logger) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAll(ctx); err != nil {
		logger.WarnContext(ctx, "failed to invalidate availability cache", "error", err)
	}
}

func normalizeServiceInput(input ServiceInput) ServiceInput {
	return ServiceInput{
		Name:            strings.TrimSpace(input.Name),
		DurationMinutes: input.DurationMinutes,
	}
}

func validateServiceInput(prefix string, input ServiceInput) *ValidationError {
	vErr := &ValidationError{}
	if input.Name == "" {
		vErr.add(prefix+"name", "name is required")
	}
	if input.DurationMinutes <= 0 {
		vErr.add(prefix+"duration_minutes", "duration must be positive")
	}
	return vErr
}

// SortServices orders services by the number their name starts with. Names
// without a numeric prefix sort last; ties are broken by name.
func SortServices(services []Service) {
	sort.SliceStable(services, func(i, j int) bool {
		ni, oki := numericPrefix(services[i].Name)
		nj, okj := numericPrefix(services[j].Name)
		switch {
		case oki && okj && ni != nj:
			return ni < nj
		case oki != okj:
			return oki
		}
		return strings.ToLower(services[i].Name) < strings.ToLower(services[j].Name)
	})
}

func numericPrefix(name string) (int, bool) {
	end := 0
	for end < len(name) && unicode.IsDigit(rune(name[end])) {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(name[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// serviceDurations indexes catalog durations by lower-cased name.
func serviceDurations(services []Service) map[string]int {
	out := make(map[string]int, len(services))
	for _, service := range services {
		out[strings.ToLower(strings.TrimSpace(service.Name))] = service.DurationMinutes
	}
	return out
}
