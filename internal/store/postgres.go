package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rosy/taxirides/internal/domain"
)

// PostgresStore implements RideStore over a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to PostgreSQL, verifies connectivity and
// creates the ride tables if they do not exist.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	s := &PostgresStore{pool: pool}

	if err := s.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if s.pool == nil {
		return fmt.Errorf("postgres not initialized")
	}
	return s.pool.Ping(ctx)
}

// tableFor maps an entity kind to its table name.
func tableFor(kind domain.Kind) (string, error) {
	switch kind {
	case domain.KindVendor1:
		return "rides_vendor1", nil
	case domain.KindVendor2:
		return "rides_vendor2", nil
	default:
		return "", fmt.Errorf("unknown ride kind: %q", kind)
	}
}

const rideColumns = `id, vendor_id, pickup_datetime, dropoff_datetime, passenger_count,
	pickup_longitude, pickup_latitude, dropoff_longitude, dropoff_latitude,
	store_and_fwd_flag, trip_duration`

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	stmts := []string{}
	for _, table := range []string{"rides_vendor1", "rides_vendor2"} {
		stmts = append(stmts,
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				id TEXT PRIMARY KEY,
				vendor_id INTEGER NOT NULL,
				pickup_datetime TIMESTAMPTZ NOT NULL,
				dropoff_datetime TIMESTAMPTZ NOT NULL,
				passenger_count INTEGER NOT NULL,
				pickup_longitude DOUBLE PRECISION NOT NULL,
				pickup_latitude DOUBLE PRECISION NOT NULL,
				dropoff_longitude DOUBLE PRECISION NOT NULL,
				dropoff_latitude DOUBLE PRECISION NOT NULL,
				store_and_fwd_flag TEXT NOT NULL,
				trip_duration INTEGER NOT NULL
			)`, table),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_passenger_count ON %s(passenger_count)`, table, table),
		)
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// RecreateTables drops and recreates both ride tables. Used by the bulk
// ingestion job, which replaces the whole data set.
func (s *PostgresStore) RecreateTables(ctx context.Context) error {
	for _, table := range []string{"rides_vendor1", "rides_vendor2"} {
		if _, err := s.pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, table)); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
	}
	return s.ensureSchema(ctx)
}

func scanRide(row pgx.Row) (*domain.Ride, error) {
	var r domain.Ride
	err := row.Scan(
		&r.ID, &r.VendorID, &r.PickupDatetime, &r.DropoffDatetime, &r.PassengerCount,
		&r.PickupLongitude, &r.PickupLatitude, &r.DropoffLongitude, &r.DropoffLatitude,
		&r.StoreAndFwdFlag, &r.TripDuration,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PostgresStore) List(ctx context.Context, kind domain.Kind, passengerCount *int, limit int) ([]domain.Ride, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s`, rideColumns, table)
	args := []any{}
	if passengerCount != nil {
		query += ` WHERE passenger_count = $1`
		args = append(args, *passengerCount)
	}
	query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	var rides []domain.Ride
	for rows.Next() {
		r, err := scanRide(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		rides = append(rides, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	return rides, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, kind domain.Kind, id string) (*domain.Ride, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	row := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, rideColumns, table), id)
	r, err := scanRide(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", table, err)
	}
	return r, nil
}

func (s *PostgresStore) Insert(ctx context.Context, kind domain.Kind, ride *domain.Ride) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, table, rideColumns),
		ride.ID, ride.VendorID, ride.PickupDatetime, ride.DropoffDatetime, ride.PassengerCount,
		ride.PickupLongitude, ride.PickupLatitude, ride.DropoffLongitude, ride.DropoffLatitude,
		ride.StoreAndFwdFlag, ride.TripDuration,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return &ConstraintError{cause: err}
		}
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, kind domain.Kind, id string, upd *domain.RideUpdate) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	if upd == nil || upd.Empty() {
		// Nothing to apply; still report missing rows.
		_, err := s.GetByID(ctx, kind, id)
		return err
	}

	var (
		sets []string
		args []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if upd.PassengerCount != nil {
		add("passenger_count", *upd.PassengerCount)
	}
	if upd.PickupLongitude != nil {
		add("pickup_longitude", *upd.PickupLongitude)
	}
	if upd.PickupLatitude != nil {
		add("pickup_latitude", *upd.PickupLatitude)
	}
	if upd.DropoffLongitude != nil {
		add("dropoff_longitude", *upd.DropoffLongitude)
	}
	if upd.DropoffLatitude != nil {
		add("dropoff_latitude", *upd.DropoffLatitude)
	}
	if upd.StoreAndFwdFlag != nil {
		add("store_and_fwd_flag", *upd.StoreAndFwdFlag)
	}
	if upd.TripDuration != nil {
		add("trip_duration", *upd.TripDuration)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $%d`,
		table, strings.Join(sets, ", "), len(args))

	ct, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return &ConstraintError{cause: err}
		}
		return fmt.Errorf("update %s: %w", table, err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, kind domain.Kind, id string) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}

	ct, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table), id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CopyRides bulk-loads rides into the table for kind using the COPY
// protocol. Returns the number of rows written.
func (s *PostgresStore) CopyRides(ctx context.Context, kind domain.Kind, rides []domain.Ride) (int64, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}

	columns := []string{
		"id", "vendor_id", "pickup_datetime", "dropoff_datetime", "passenger_count",
		"pickup_longitude", "pickup_latitude", "dropoff_longitude", "dropoff_latitude",
		"store_and_fwd_flag", "trip_duration",
	}
	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{table}, columns,
		pgx.CopyFromSlice(len(rides), func(i int) ([]any, error) {
			r := rides[i]
			return []any{
				r.ID, r.VendorID, r.PickupDatetime, r.DropoffDatetime, r.PassengerCount,
				r.PickupLongitude, r.PickupLatitude, r.DropoffLongitude, r.DropoffLatitude,
				r.StoreAndFwdFlag, r.TripDuration,
			}, nil
		}))
	if err != nil {
		return n, fmt.Errorf("copy into %s: %w", table, err)
	}
	return n, nil
}
