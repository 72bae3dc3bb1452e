package testutil

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/c360/sensorstore/errors"
	"github.com/c360/sensorstore/models"
	"github.com/c360/sensorstore/pkg/objectid"
	"github.com/c360/sensorstore/storage"
)

// MemMeasurementStore is an in-memory storage.MeasurementStore that records
// how often each operation was called, so cache-aside tests can assert the
// exact number of store round trips.
type MemMeasurementStore struct {
	mu       sync.Mutex
	docs     map[primitive.ObjectID]models.Measurement
	calls    map[string]int
	gen      *objectid.Generator
	now      func() time.Time
	failNext error
}

var _ storage.MeasurementStore = (*MemMeasurementStore)(nil)

// NewMemMeasurementStore creates an empty store using the given clock for
// timestamp defaulting. A nil clock falls back to time.Now.
func NewMemMeasurementStore(now func() time.Time) *MemMeasurementStore {
	if now == nil {
		now = time.Now
	}
	return &MemMeasurementStore{
		docs:  make(map[primitive.ObjectID]models.Measurement),
		calls: make(map[string]int),
		gen:   objectid.NewDefaultGenerator(),
		now:   now,
	}
}

// Calls returns how often the named operation hit the store.
func (s *MemMeasurementStore) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// TotalCalls returns the total number of store round trips.
func (s *MemMeasurementStore) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

// FailNext makes the next store operation return err.
func (s *MemMeasurementStore) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

// Put seeds a measurement directly, bypassing call counting.
func (s *MemMeasurementStore) Put(m models.Measurement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[m.ID] = m
}

// Len returns the number of stored measurements.
func (s *MemMeasurementStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

func (s *MemMeasurementStore) enter(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
	if err := s.failNext; err != nil {
		s.failNext = nil
		return err
	}
	return nil
}

// Receive implements storage.MeasurementStore
func (s *MemMeasurementStore) Receive(_ context.Context, sensor *models.Sensor, payload []byte) (*models.Measurement, error) {
	if sensor == nil || sensor.ID.IsZero() {
		return nil, errors.WrapInvalid(errors.ErrMissingSensor, "mem", "Receive", "resolve owning sensor")
	}

	raw, err := models.ParseRawMeasurement(payload)
	if err != nil {
		return nil, err
	}
	if raw.Secret != sensor.Secret {
		return nil, errors.WrapInvalid(errors.ErrSecretMismatch, "mem", "Receive", "secret validation")
	}
	data, err := models.ParseDataPoints(raw.Data)
	if err != nil {
		return nil, err
	}

	if err := s.enter("Receive"); err != nil {
		return nil, err
	}

	createdAt := raw.CreatedAtOrDefault(s.now())
	m := models.Measurement{
		ID:        s.gen.Generate(createdAt),
		SensorID:  sensor.ID,
		CreatedAt: createdAt,
		Latitude:  raw.Latitude,
		Longitude: raw.Longitude,
		Data:      data,
	}

	s.mu.Lock()
	s.docs[m.ID] = m
	s.mu.Unlock()
	return &m, nil
}

// GetByID implements storage.MeasurementStore
func (s *MemMeasurementStore) GetByID(_ context.Context, id primitive.ObjectID) (*models.Measurement, error) {
	if err := s.enter("GetByID"); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.docs[id]
	if !ok {
		return nil, errors.WrapStorage(errors.ErrNotFound, "mem", "GetByID", "find")
	}
	return &m, nil
}

// GetBySensor implements storage.MeasurementStore
func (s *MemMeasurementStore) GetBySensor(_ context.Context, sensor *models.Sensor, skip, limit int64) ([]models.Measurement, error) {
	if err := s.enter("GetBySensor"); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Measurement
	for _, m := range s.docs {
		if m.SensorID == sensor.ID {
			out = append(out, m)
		}
	}
	return paginate(out, skip, limit), nil
}

// GetBetween implements storage.MeasurementStore
func (s *MemMeasurementStore) GetBetween(ctx context.Context, sensor *models.Sensor, start, end time.Time, opts storage.QueryOptions) ([]models.MeasurementsQueryResult, error) {
	return s.between(ctx, "GetBetween", []models.Sensor{*sensor}, start, end, opts)
}

// GetBetweenMany implements storage.MeasurementStore
func (s *MemMeasurementStore) GetBetweenMany(ctx context.Context, sensors []models.Sensor, start, end time.Time, opts storage.QueryOptions) ([]models.MeasurementsQueryResult, error) {
	return s.between(ctx, "GetBetweenMany", sensors, start, end, opts)
}

func (s *MemMeasurementStore) between(_ context.Context, op string, sensors []models.Sensor, start, end time.Time, opts storage.QueryOptions) ([]models.MeasurementsQueryResult, error) {
	if err := s.enter(op); err != nil {
		return nil, err
	}

	owned := make(map[primitive.ObjectID]bool, len(sensors))
	for _, sensor := range sensors {
		owned[sensor.ID] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.MeasurementsQueryResult
	for _, m := range s.docs {
		if !owned[m.SensorID] {
			continue
		}
		// Both bounds inclusive.
		if m.CreatedAt.Before(start) || m.CreatedAt.After(end) {
			continue
		}
		out = append(out, models.MeasurementsQueryResult{
			ID: m.ID, SensorID: m.SensorID, CreatedAt: m.CreatedAt,
			Latitude: m.Latitude, Longitude: m.Longitude, Data: m.Data,
		})
	}
	sortResults(out, opts.Order)
	return paginate(out, opts.Skip, opts.Limit), nil
}

// GetNear implements storage.MeasurementStore. Proximity is not modeled; the
// in-memory double applies only the time filter.
func (s *MemMeasurementStore) GetNear(ctx context.Context, sensor *models.Sensor, start, end time.Time, _ models.GeoCoordinates, _ int64, opts storage.QueryOptions) ([]models.MeasurementsQueryResult, error) {
	return s.between(ctx, "GetNear", []models.Sensor{*sensor}, start, end, opts)
}

// GetNearMany implements storage.MeasurementStore
func (s *MemMeasurementStore) GetNearMany(ctx context.Context, sensors []models.Sensor, start, end time.Time, _ models.GeoCoordinates, _ int64, opts storage.QueryOptions) ([]models.MeasurementsQueryResult, error) {
	return s.between(ctx, "GetNearMany", sensors, start, end, opts)
}

// GetMeasurements implements storage.MeasurementStore. Only the equality and
// membership shapes used in tests are evaluated.
func (s *MemMeasurementStore) GetMeasurements(_ context.Context, _ string, query *storage.Query) ([]models.Measurement, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	if err := s.enter("GetMeasurements"); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Measurement
	for _, m := range s.docs {
		if matches(&m, query) {
			out = append(out, m)
		}
	}
	return out, nil
}

// Update implements storage.MeasurementStore
func (s *MemMeasurementStore) Update(_ context.Context, m *models.Measurement) error {
	if !m.HasCoordinates() && len(m.Data) == 0 {
		return nil
	}
	if err := s.enter("Update"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.docs[m.ID]
	if !ok {
		return errors.WrapStorage(errors.ErrNotFound, "mem", "Update", "find")
	}
	if m.HasCoordinates() {
		stored.Latitude = m.Latitude
		stored.Longitude = m.Longitude
	}
	if len(m.Data) > 0 {
		stored.Data = m.Data
	}
	s.docs[m.ID] = stored
	return nil
}

// Delete implements storage.MeasurementStore
func (s *MemMeasurementStore) Delete(_ context.Context, id primitive.ObjectID) error {
	if err := s.enter("Delete"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	return nil
}

// DeleteBySensor implements storage.MeasurementStore
func (s *MemMeasurementStore) DeleteBySensor(_ context.Context, sensor *models.Sensor) error {
	if err := s.enter("DeleteBySensor"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, m := range s.docs {
		if m.SensorID == sensor.ID {
			delete(s.docs, id)
		}
	}
	return nil
}

// DeleteBetween implements storage.MeasurementStore
func (s *MemMeasurementStore) DeleteBetween(_ context.Context, sensor *models.Sensor, start, end time.Time) error {
	if err := s.enter("DeleteBetween"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, m := range s.docs {
		if m.SensorID != sensor.ID {
			continue
		}
		if m.CreatedAt.Before(start) || m.CreatedAt.After(end) {
			continue
		}
		delete(s.docs, id)
	}
	return nil
}

func matches(m *models.Measurement, q *storage.Query) bool {
	switch q.Kind {
	case storage.KindEq:
		return fieldValue(m, q.Field) == q.Value
	case storage.KindIn:
		got := fieldValue(m, q.Field)
		for _, v := range q.Values {
			if got == v {
				return true
			}
		}
		return false
	case storage.KindGte:
		if t, ok := q.Value.(time.Time); ok && q.Field == "createdAt" {
			return !m.CreatedAt.Before(t)
		}
		return false
	case storage.KindLte:
		if t, ok := q.Value.(time.Time); ok && q.Field == "createdAt" {
			return !m.CreatedAt.After(t)
		}
		return false
	case storage.KindAnd:
		for _, child := range q.Children {
			if !matches(m, child) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func fieldValue(m *models.Measurement, field string) any {
	switch field {
	case "_id":
		return m.ID
	case "sensorId":
		return m.SensorID
	default:
		return nil
	}
}

func sortResults(results []models.MeasurementsQueryResult, order models.OrderDirection) {
	if order == models.OrderNone {
		return
	}
	for i := 1; i < len(results); i++ {
		for j := i; j > 0; j-- {
			before := results[j].CreatedAt.Before(results[j-1].CreatedAt)
			if (order == models.OrderAscending && before) || (order == models.OrderDescending && !before) {
				results[j], results[j-1] = results[j-1], results[j]
			} else {
				break
			}
		}
	}
}

func paginate[T any](items []T, skip, limit int64) []T {
	if skip != storage.NoPagination && skip > 0 {
		if skip >= int64(len(items)) {
			return nil
		}
		items = items[skip:]
	}
	if limit != storage.NoPagination && limit >= 0 && limit < int64(len(items)) {
		items = items[:limit]
	}
	return items
}
