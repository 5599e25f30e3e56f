package application

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/agenda-booking/internal/persistence"
)

func fakeHasher(password string) (string, error) {
	return "hashed:" + password, nil
}

func fakeVerifier(hash, password string) error {
	if hash != "hashed:"+password {
		return ErrInvalidCredentials
	}
	return nil
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sequence(values ...string) func() string {
	var mu sync.Mutex
	i := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		if i >= len(values) {
			return values[len(values)-1]
		}
		v := values[i]
		i++
		return v
	}
}

var (
	adminPrincipal  = Principal{UserID: "admin-1", IsAdmin: true, Role: RoleAdmin}
	viewerPrincipal = Principal{UserID: "viewer-1", Role: RoleViewer}
)

// agendaRepoStub is an in-memory AgendaRepository enforcing slug uniqueness.
type agendaRepoStub struct {
	agendas map[string]Agenda
	order   []string
	err     error
}

func newAgendaRepoStub(agendas ...Agenda) *agendaRepoStub {
	repo := &agendaRepoStub{agendas: make(map[string]Agenda)}
	for _, agenda := range agendas {
		repo.agendas[agenda.ID] = agenda
		repo.order = append(repo.order, agenda.ID)
	}
	return repo
}

func (r *agendaRepoStub) slugTaken(slug, exceptID string) bool {
	for id, agenda := range r.agendas {
		if id != exceptID && strings.EqualFold(agenda.Slug, slug) {
			return true
		}
	}
	return false
}

func (r *agendaRepoStub) CreateAgenda(_ context.Context, agenda Agenda) (Agenda, error) {
	if r.err != nil {
		return Agenda{}, r.err
	}
	if r.slugTaken(agenda.Slug, "") {
		return Agenda{}, persistence.ErrDuplicate
	}
	r.agendas[agenda.ID] = agenda
	r.order = append(r.order, agenda.ID)
	return agenda, nil
}

func (r *agendaRepoStub) UpdateAgenda(_ context.Context, agenda Agenda) (Agenda, error) {
	if r.err != nil {
		return Agenda{}, r.err
	}
	if _, ok := r.agendas[agenda.ID]; !ok {
		return Agenda{}, persistence.ErrNotFound
	}
	if r.slugTaken(agenda.Slug, agenda.ID) {
		return Agenda{}, persistence.ErrDuplicate
	}
	r.agendas[agenda.ID] = agenda
	return agenda, nil
}

func (r *agendaRepoStub) GetAgenda(_ context.Context, id string) (Agenda, error) {
	if r.err != nil {
		return Agenda{}, r.err
	}
	agenda, ok := r.agendas[id]
	if !ok {
		return Agenda{}, persistence.ErrNotFound
	}
	return agenda, nil
}

func (r *agendaRepoStub) GetAgendaBySlug(_ context.Context, slug string) (Agenda, error) {
	if r.err != nil {
		return Agenda{}, r.err
	}
	for _, agenda := range r.agendas {
		if strings.EqualFold(agenda.Slug, slug) {
			return agenda, nil
		}
	}
	return Agenda{}, persistence.ErrNotFound
}

func (r *agendaRepoStub) ListAgendas(context.Context) ([]Agenda, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := make([]Agenda, 0, len(r.order))
	for _, id := range r.order {
		if agenda, ok := r.agendas[id]; ok {
			out = append(out, agenda)
		}
	}
	return out, nil
}

func (r *agendaRepoStub) DeleteAgenda(_ context.Context, id string) error {
	if r.err != nil {
		return r.err
	}
	if _, ok := r.agendas[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.agendas, id)
	return nil
}

// catalogStub is an in-memory ServiceCatalog and AddressRepository.
type catalogStub struct {
	services  map[string]Service
	addresses []Address
	err       error
}

func newCatalogStub(services ...Service) *catalogStub {
	c := &catalogStub{services: make(map[string]Service)}
	for _, service := range services {
		c.services[strings.ToLower(service.Name)] = service
	}
	return c
}

func (c *catalogStub) CreateService(_ context.Context, service Service) (Service, error) {
	if c.err != nil {
		return Service{}, c.err
	}
	key := strings.ToLower(service.Name)
	if _, ok := c.services[key]; ok {
		return Service{}, persistence.ErrDuplicate
	}
	c.services[key] = service
	return service, nil
}

func (c *catalogStub) GetService(_ context.Context, name string) (Service, error) {
	if c.err != nil {
		return Service{}, c.err
	}
	service, ok := c.services[strings.ToLower(name)]
	if !ok {
		return Service{}, persistence.ErrNotFound
	}
	return service, nil
}

func (c *catalogStub) ListServices(context.Context) ([]Service, error) {
	if c.err != nil {
		return nil, c.err
	}
	out := make([]Service, 0, len(c.services))
	for _, service := range c.services {
		out = append(out, service)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (c *catalogStub) DeleteService(_ context.Context, name string) error {
	if c.err != nil {
		return c.err
	}
	key := strings.ToLower(name)
	if _, ok := c.services[key]; !ok {
		return persistence.ErrNotFound
	}
	delete(c.services, key)
	return nil
}

func (c *catalogStub) ReplaceServices(_ context.Context, services []Service) error {
	if c.err != nil {
		return c.err
	}
	c.services = make(map[string]Service, len(services))
	for _, service := range services {
		c.services[strings.ToLower(service.Name)] = service
	}
	return nil
}

func (c *catalogStub) CreateAddress(_ context.Context, address Address) (Address, error) {
	if c.err != nil {
		return Address{}, c.err
	}
	for _, existing := range c.addresses {
		if strings.EqualFold(existing.Label, address.Label) {
			return Address{}, persistence.ErrDuplicate
		}
	}
	c.addresses = append(c.addresses, address)
	return address, nil
}

func (c *catalogStub) ListAddresses(context.Context) ([]Address, error) {
	if c.err != nil {
		return nil, c.err
	}
	out := make([]Address, len(c.addresses))
	copy(out, c.addresses)
	return out, nil
}

func (c *catalogStub) DeleteAddress(_ context.Context, id string) error {
	if c.err != nil {
		return c.err
	}
	for i, address := range c.addresses {
		if address.ID == id {
			c.addresses = append(c.addresses[:i], c.addresses[i+1:]...)
			return nil
		}
	}
	return persistence.ErrNotFound
}

// appointmentRepoStub is an in-memory AppointmentRepository with the same
// capacity and code uniqueness rules as the SQL store.
type appointmentRepoStub struct {
	mu           sync.Mutex
	appointments []Appointment
	listCalls    int
	err          error
}

func newAppointmentRepoStub(appointments ...Appointment) *appointmentRepoStub {
	return &appointmentRepoStub{appointments: appointments}
}

func (r *appointmentRepoStub) InsertAppointmentIfAvailable(_ context.Context, appointment Appointment, maxPerSlot int) (Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return Appointment{}, r.err
	}
	count := 0
	for _, existing := range r.appointments {
		if existing.Code == appointment.Code {
			return Appointment{}, persistence.ErrDuplicate
		}
		if existing.AgendaID == appointment.AgendaID && existing.Date == appointment.Date && existing.Time == appointment.Time {
			count++
		}
	}
	if count >= maxPerSlot {
		return Appointment{}, persistence.ErrCapacityReached
	}
	r.appointments = append(r.appointments, appointment)
	return appointment, nil
}

func (r *appointmentRepoStub) UpdateAppointmentIfAvailable(_ context.Context, appointment Appointment, maxPerSlot int) (Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return Appointment{}, r.err
	}
	index, count := -1, 0
	for i, existing := range r.appointments {
		if strings.EqualFold(existing.Code, appointment.Code) {
			index = i
			continue
		}
		if existing.AgendaID == appointment.AgendaID && existing.Date == appointment.Date && existing.Time == appointment.Time {
			count++
		}
	}
	if index < 0 {
		return Appointment{}, persistence.ErrNotFound
	}
	if count >= maxPerSlot {
		return Appointment{}, persistence.ErrCapacityReached
	}
	r.appointments[index] = appointment
	return appointment, nil
}

func (r *appointmentRepoStub) GetAppointment(_ context.Context, code string) (Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, appointment := range r.appointments {
		if strings.EqualFold(appointment.Code, code) {
			return appointment, nil
		}
	}
	return Appointment{}, persistence.ErrNotFound
}

func (r *appointmentRepoStub) ListAppointments(_ context.Context, query AppointmentQuery) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	if r.err != nil {
		return nil, r.err
	}
	var out []Appointment
	for _, appointment := range r.appointments {
		if len(query.AgendaIDs) > 0 && !containsString(query.AgendaIDs, appointment.AgendaID) {
			continue
		}
		if query.Date != "" && appointment.Date != query.Date {
			continue
		}
		if query.From != "" && appointment.Date < query.From {
			continue
		}
		if query.To != "" && appointment.Date > query.To {
			continue
		}
		out = append(out, appointment)
	}
	return out, nil
}

func (r *appointmentRepoStub) DeleteAppointment(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, appointment := range r.appointments {
		if strings.EqualFold(appointment.Code, code) {
			r.appointments = append(r.appointments[:i], r.appointments[i+1:]...)
			return nil
		}
	}
	return persistence.ErrNotFound
}

// userRepoStub is an in-memory UserRepository enforcing login uniqueness.
type userRepoStub struct {
	users  map[string]User
	hashes map[string]string
	err    error
}

func newUserRepoStub(users ...User) *userRepoStub {
	repo := &userRepoStub{users: make(map[string]User), hashes: make(map[string]string)}
	for _, user := range users {
		repo.users[user.ID] = user
	}
	return repo
}

func (r *userRepoStub) loginTaken(login, exceptID string) bool {
	for id, user := range r.users {
		if id != exceptID && strings.EqualFold(user.Login, login) {
			return true
		}
	}
	return false
}

func (r *userRepoStub) CreateUser(_ context.Context, creds UserCredentials) (User, error) {
	if r.err != nil {
		return User{}, r.err
	}
	if _, ok := r.users[creds.User.ID]; ok || r.loginTaken(creds.User.Login, "") {
		return User{}, persistence.ErrDuplicate
	}
	r.users[creds.User.ID] = creds.User
	r.hashes[creds.User.ID] = creds.PasswordHash
	return creds.User, nil
}

func (r *userRepoStub) GetUser(_ context.Context, id string) (User, error) {
	if r.err != nil {
		return User{}, r.err
	}
	user, ok := r.users[id]
	if !ok {
		return User{}, persistence.ErrNotFound
	}
	return user, nil
}

func (r *userRepoStub) UpdateUser(_ context.Context, creds UserCredentials) (User, error) {
	if r.err != nil {
		return User{}, r.err
	}
	if _, ok := r.users[creds.User.ID]; !ok {
		return User{}, persistence.ErrNotFound
	}
	if r.loginTaken(creds.User.Login, creds.User.ID) {
		return User{}, persistence.ErrDuplicate
	}
	r.users[creds.User.ID] = creds.User
	if creds.PasswordHash != "" {
		r.hashes[creds.User.ID] = creds.PasswordHash
	}
	return creds.User, nil
}

func (r *userRepoStub) DeleteUser(_ context.Context, id string) error {
	if r.err != nil {
		return r.err
	}
	if _, ok := r.users[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *userRepoStub) ListUsers(context.Context) ([]User, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := make([]User, 0, len(r.users))
	for _, user := range r.users {
		out = append(out, user)
	}
	return out, nil
}

// cacheSpy records invalidations on top of the in-memory cache.
type cacheSpy struct {
	*MemoryAvailabilityCache
	invalidatedAgendas []string
	invalidatedAll     int
}

func newCacheSpy() *cacheSpy {
	return &cacheSpy{MemoryAvailabilityCache: NewMemoryAvailabilityCache(time.Hour, 64, nil)}
}

func (c *cacheSpy) InvalidateAgenda(ctx context.Context, agendaID string) error {
	c.invalidatedAgendas = append(c.invalidatedAgendas, agendaID)
	return c.MemoryAvailabilityCache.InvalidateAgenda(ctx, agendaID)
}

func (c *cacheSpy) InvalidateAll(ctx context.Context) error {
	c.invalidatedAll++
	return c.MemoryAvailabilityCache.InvalidateAll(ctx)
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
