package catalog

import (
	"context"
	"database/sql"
	"errors"
)

// PGLookup implements Lookup using Postgres.
type PGLookup struct {
	DB *sql.DB
}

func (r *PGLookup) ActiveProjects(ctx context.Context) ([]Project, error) {
	const query = `SELECT id, name, active FROM projects WHERE active ORDER BY name`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Active); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PGLookup) ActiveLocations(ctx context.Context) ([]Location, error) {
	const query = `SELECT id, name, active FROM locations WHERE active ORDER BY name`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Location
	for rows.Next() {
		var l Location
		if err := rows.Scan(&l.ID, &l.Name, &l.Active); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *PGLookup) FindProject(ctx context.Context, id string) (*Project, error) {
	const query = `SELECT id, name, active FROM projects WHERE id = $1 AND active`
	var p Project
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, &p.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PGLookup) FindLocation(ctx context.Context, id string) (*Location, error) {
	const query = `SELECT id, name, active FROM locations WHERE id = $1 AND active`
	var l Location
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&l.ID, &l.Name, &l.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *PGLookup) PartNumbers(ctx context.Context) ([]PartNumber, error) {
	const query = `SELECT id, code, description, active FROM part_numbers WHERE active ORDER BY code, id`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PartNumber
	for rows.Next() {
		var p PartNumber
		if err := rows.Scan(&p.ID, &p.Code, &p.Description, &p.Active); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

var _ Lookup = (*PGLookup)(nil)
