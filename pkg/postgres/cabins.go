package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cabecera/ing-software-caba-itas/pkg/core/model"
)

const cabinColumns = `id, name, capacity, nightly_price, status`

func scanCabin(row pgx.Row) (model.Cabin, error) {
	var c model.Cabin
	err := row.Scan(&c.ID, &c.Name, &c.Capacity, &c.NightlyPrice, &c.Status)
	return c, err
}

func (d *DB) GetCabin(ctx context.Context, id string) (model.Cabin, error) {
	c, err := scanCabin(d.pool.QueryRow(ctx, `SELECT `+cabinColumns+` FROM cabins WHERE id = $1`, id))
	if err != nil {
		return model.Cabin{}, notFound(err)
	}
	return c, nil
}

func (d *DB) ListCabins(ctx context.Context) ([]model.Cabin, error) {
	rows, err := d.pool.Query(ctx, `SELECT `+cabinColumns+` FROM cabins ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cabins: %w", err)
	}
	defer rows.Close()

	var cabins []model.Cabin
	for rows.Next() {
		c, err := scanCabin(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cabin: %w", err)
		}
		cabins = append(cabins, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cabins: %w", err)
	}
	return cabins, nil
}

func (d *DB) InsertCabin(ctx context.Context, cabin *model.Cabin) error {
	cabin.ID = orNewID(cabin.ID)
	_, err := d.pool.Exec(ctx, `
		INSERT INTO cabins (`+cabinColumns+`)
		VALUES ($1, $2, $3, $4, $5)
	`, cabin.ID, cabin.Name, cabin.Capacity, cabin.NightlyPrice, cabin.Status)
	if err != nil {
		return fmt.Errorf("failed to insert cabin: %w", err)
	}
	return nil
}

func (d *DB) UpdateCabinStatus(ctx context.Context, id string, status model.CabinStatus) error {
	tag, err := d.pool.Exec(ctx, `UPDATE cabins SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update cabin status: %w", err)
	}
	return expectRow(tag)
}

const customerColumns = `id, name, phone, email, address, type, created_at`

func scanCustomer(row pgx.Row) (model.Customer, error) {
	var c model.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.Type, &c.CreatedAt)
	c.CreatedAt = utc(c.CreatedAt)
	return c, err
}

func (d *DB) GetCustomer(ctx context.Context, id string) (model.Customer, error) {
	c, err := scanCustomer(d.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if err != nil {
		return model.Customer{}, notFound(err)
	}
	return c, nil
}

func (d *DB) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	rows, err := d.pool.Query(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	var customers []model.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating customers: %w", err)
	}
	return customers, nil
}

func (d *DB) InsertCustomer(ctx context.Context, customer *model.Customer) error {
	customer.ID = orNewID(customer.ID)
	_, err := d.pool.Exec(ctx, `
		INSERT INTO customers (`+customerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, customer.ID, customer.Name, customer.Phone, customer.Email, customer.Address, customer.Type, customer.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert customer: %w", err)
	}
	return nil
}
