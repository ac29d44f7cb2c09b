package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/grihome/grihome/internal/app/domain/ad"
	"github.com/grihome/grihome/internal/app/domain/agent"
	"github.com/grihome/grihome/internal/app/domain/auth"
	"github.com/grihome/grihome/internal/app/domain/forum"
	"github.com/grihome/grihome/internal/app/domain/project"
	"github.com/grihome/grihome/internal/app/domain/property"
	"github.com/grihome/grihome/internal/app/domain/user"
	"github.com/grihome/grihome/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.ProjectStore = (*Store)(nil)
var _ storage.PropertyStore = (*Store)(nil)
var _ storage.AgentStore = (*Store)(nil)
var _ storage.ForumStore = (*Store)(nil)
var _ storage.AdStore = (*Store)(nil)
var _ storage.SessionStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// --- UserStore --------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, phone, username, password_hash, role, name, city, state, email_verified, phone_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, u.ID, u.Email, u.Phone, u.Username, u.PasswordHash, u.Role, u.Name, u.City, u.State, u.EmailVerified, u.PhoneVerified, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, fmt.Errorf("email or username already registered")
		}
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) (user.User, error) {
	existing, err := s.GetUser(ctx, u.ID)
	if err != nil {
		return user.User{}, err
	}
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET email = $2, phone = $3, username = $4, password_hash = $5, role = $6,
		    name = $7, city = $8, state = $9, email_verified = $10, phone_verified = $11, updated_at = $12
		WHERE id = $1
	`, u.ID, u.Email, u.Phone, u.Username, u.PasswordHash, u.Role, u.Name, u.City, u.State, u.EmailVerified, u.PhoneVerified, u.UpdatedAt)
	if err != nil {
		return user.User{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return user.User{}, sql.ErrNoRows
	}
	return u, nil
}

const userColumns = `id, email, phone, username, password_hash, role, name, city, state, email_verified, phone_verified, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Email, &u.Phone, &u.Username, &u.PasswordHash, &u.Role, &u.Name, &u.City, &u.State, &u.EmailVerified, &u.PhoneVerified, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE lower(username) = lower($1)`, username))
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

// --- ProjectStore -----------------------------------------------------------

func (s *Store) CreateBuilder(ctx context.Context, b project.Builder) (project.Builder, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO builders (id, name, description, website, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, b.ID, b.Name, b.Description, b.Website, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return project.Builder{}, err
	}
	return b, nil
}

func (s *Store) UpdateBuilder(ctx context.Context, b project.Builder) (project.Builder, error) {
	existing, err := s.GetBuilder(ctx, b.ID)
	if err != nil {
		return project.Builder{}, err
	}
	b.CreatedAt = existing.CreatedAt
	b.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE builders SET name = $2, description = $3, website = $4, updated_at = $5 WHERE id = $1
	`, b.ID, b.Name, b.Description, b.Website, b.UpdatedAt)
	if err != nil {
		return project.Builder{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return project.Builder{}, sql.ErrNoRows
	}
	return b, nil
}

func (s *Store) GetBuilder(ctx context.Context, id string) (project.Builder, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, website, created_at, updated_at FROM builders WHERE id = $1
	`, id)

	var b project.Builder
	if err := row.Scan(&b.ID, &b.Name, &b.Description, &b.Website, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return project.Builder{}, err
	}
	return b, nil
}

func (s *Store) ListBuilders(ctx context.Context) ([]project.Builder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, website, created_at, updated_at FROM builders ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []project.Builder
	for rows.Next() {
		var b project.Builder
		if err := rows.Scan(&b.ID, &b.Name, &b.Description, &b.Website, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

const projectColumns = `id, builder_id, name, description, type, status, city, state, locality, pincode, lat, lng, created_at, updated_at`

func scanProject(row interface{ Scan(...interface{}) error }) (project.Project, error) {
	var p project.Project
	err := row.Scan(&p.ID, &p.BuilderID, &p.Name, &p.Description, &p.Type, &p.Status,
		&p.Location.City, &p.Location.State, &p.Location.Locality, &p.Location.Pincode,
		&p.Location.Lat, &p.Location.Lng, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *Store) CreateProject(ctx context.Context, p project.Project) (project.Project, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, builder_id, name, description, type, status, city, state, locality, pincode, lat, lng, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, p.ID, p.BuilderID, p.Name, p.Description, p.Type, p.Status,
		p.Location.City, p.Location.State, p.Location.Locality, p.Location.Pincode,
		p.Location.Lat, p.Location.Lng, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return project.Project{}, err
	}
	return p, nil
}

func (s *Store) UpdateProject(ctx context.Context, p project.Project) (project.Project, error) {
	existing, err := s.GetProject(ctx, p.ID)
	if err != nil {
		return project.Project{}, err
	}
	p.BuilderID = existing.BuilderID
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE projects
		SET name = $2, description = $3, type = $4, status = $5, city = $6, state = $7,
		    locality = $8, pincode = $9, lat = $10, lng = $11, updated_at = $12
		WHERE id = $1
	`, p.ID, p.Name, p.Description, p.Type, p.Status,
		p.Location.City, p.Location.State, p.Location.Locality, p.Location.Pincode,
		p.Location.Lat, p.Location.Lng, p.UpdatedAt)
	if err != nil {
		return project.Project{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return project.Project{}, sql.ErrNoRows
	}
	return p, nil
}

func (s *Store) GetProject(ctx context.Context, id string) (project.Project, error) {
	return scanProject(s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
}

func (s *Store) ListProjects(ctx context.Context, builderID, city string) ([]project.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE ($1 = '' OR builder_id = $1) AND ($2 = '' OR lower(city) = lower($2))
		ORDER BY created_at
	`, builderID, city)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []project.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// --- PropertyStore ----------------------------------------------------------

const propertyColumns = `id, owner_id, project_id, title, description, type, city, state, locality, pincode, sqft, bedrooms, bathrooms, price, images, status, created_at, updated_at`

func scanProperty(row interface{ Scan(...interface{}) error }) (property.Property, error) {
	var (
		p         property.Property
		projectID sql.NullString
	)
	err := row.Scan(&p.ID, &p.OwnerID, &projectID, &p.Title, &p.Description, &p.Type,
		&p.City, &p.State, &p.Locality, &p.Pincode, &p.SqFt, &p.Bedrooms, &p.Bathrooms,
		&p.Price, pq.Array(&p.Images), &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if projectID.Valid {
		p.ProjectID = projectID.String
	}
	return p, err
}

func (s *Store) CreateProperty(ctx context.Context, p property.Property) (property.Property, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO properties (id, owner_id, project_id, title, description, type, city, state, locality, pincode, sqft, bedrooms, bathrooms, price, images, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`, p.ID, p.OwnerID, toNullString(p.ProjectID), p.Title, p.Description, p.Type,
		p.City, p.State, p.Locality, p.Pincode, p.SqFt, p.Bedrooms, p.Bathrooms,
		p.Price, pq.Array(p.Images), p.Status, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return property.Property{}, err
	}
	return p, nil
}

func (s *Store) UpdateProperty(ctx context.Context, p property.Property) (property.Property, error) {
	existing, err := s.GetProperty(ctx, p.ID)
	if err != nil {
		return property.Property{}, err
	}
	p.OwnerID = existing.OwnerID
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE properties
		SET project_id = $2, title = $3, description = $4, type = $5, city = $6, state = $7,
		    locality = $8, pincode = $9, sqft = $10, bedrooms = $11, bathrooms = $12,
		    price = $13, images = $14, status = $15, updated_at = $16
		WHERE id = $1
	`, p.ID, toNullString(p.ProjectID), p.Title, p.Description, p.Type, p.City, p.State,
		p.Locality, p.Pincode, p.SqFt, p.Bedrooms, p.Bathrooms, p.Price, pq.Array(p.Images),
		p.Status, p.UpdatedAt)
	if err != nil {
		return property.Property{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return property.Property{}, sql.ErrNoRows
	}
	return p, nil
}

func (s *Store) GetProperty(ctx context.Context, id string) (property.Property, error) {
	return scanProperty(s.db.QueryRowContext(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = $1`, id))
}

func (s *Store) ListProperties(ctx context.Context, ownerID, projectID string) ([]property.Property, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+propertyColumns+`
		FROM properties
		WHERE ($1 = '' OR owner_id = $1) AND ($2 = '' OR project_id = $2)
		ORDER BY created_at
	`, ownerID, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []property.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// SearchProperties builds the filter clause dynamically and binds it with
// sqlx named parameters.
func (s *Store) SearchProperties(ctx context.Context, filter property.SearchFilter) ([]property.Property, error) {
	clauses := []string{"status = 'ACTIVE'"}
	args := map[string]interface{}{}

	if filter.City != "" {
		clauses = append(clauses, "lower(city) = lower(:city)")
		args["city"] = filter.City
	}
	if filter.Type != "" {
		clauses = append(clauses, "upper(type) = upper(:type)")
		args["type"] = filter.Type
	}
	if filter.MinPrice > 0 {
		clauses = append(clauses, "price >= :min_price")
		args["min_price"] = filter.MinPrice
	}
	if filter.MaxPrice > 0 {
		clauses = append(clauses, "price <= :max_price")
		args["max_price"] = filter.MaxPrice
	}
	if filter.Bedrooms > 0 {
		clauses = append(clauses, "bedrooms >= :bedrooms")
		args["bedrooms"] = filter.Bedrooms
	}

	query := `SELECT ` + propertyColumns + ` FROM properties WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += " LIMIT :limit"
		args["limit"] = filter.Limit
	}

	namedQuery, namedArgs, err := sqlx.Named(query, args)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(namedQuery), namedArgs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []property.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// --- AgentStore -------------------------------------------------------------

const projectAgentColumns = `id, project_id, user_id, is_promoted, promotion_start, promotion_end, created_at, updated_at`

func scanProjectAgent(row interface{ Scan(...interface{}) error }) (agent.ProjectAgent, error) {
	var (
		pa    agent.ProjectAgent
		start sql.NullTime
		end   sql.NullTime
	)
	err := row.Scan(&pa.ID, &pa.ProjectID, &pa.UserID, &pa.Promotion.IsPromoted, &start, &end, &pa.CreatedAt, &pa.UpdatedAt)
	if start.Valid {
		pa.Promotion.Start = start.Time.UTC()
	}
	if end.Valid {
		pa.Promotion.End = end.Time.UTC()
	}
	return pa, err
}

func (s *Store) CreateProjectAgent(ctx context.Context, pa agent.ProjectAgent) (agent.ProjectAgent, error) {
	if pa.ID == "" {
		pa.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	pa.CreatedAt = now
	pa.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO project_agents (id, project_id, user_id, is_promoted, promotion_start, promotion_end, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, pa.ID, pa.ProjectID, pa.UserID, pa.Promotion.IsPromoted, toNullTime(pa.Promotion.Start), toNullTime(pa.Promotion.End), pa.CreatedAt, pa.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return agent.ProjectAgent{}, fmt.Errorf("user already registered for project")
		}
		return agent.ProjectAgent{}, err
	}
	return pa, nil
}

func (s *Store) UpdateProjectAgent(ctx context.Context, pa agent.ProjectAgent) (agent.ProjectAgent, error) {
	existing, err := s.GetProjectAgent(ctx, pa.ID)
	if err != nil {
		return agent.ProjectAgent{}, err
	}
	pa.ProjectID = existing.ProjectID
	pa.UserID = existing.UserID
	pa.CreatedAt = existing.CreatedAt
	pa.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE project_agents
		SET is_promoted = $2, promotion_start = $3, promotion_end = $4, updated_at = $5
		WHERE id = $1
	`, pa.ID, pa.Promotion.IsPromoted, toNullTime(pa.Promotion.Start), toNullTime(pa.Promotion.End), pa.UpdatedAt)
	if err != nil {
		return agent.ProjectAgent{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return agent.ProjectAgent{}, sql.ErrNoRows
	}
	return pa, nil
}

func (s *Store) GetProjectAgent(ctx context.Context, id string) (agent.ProjectAgent, error) {
	return scanProjectAgent(s.db.QueryRowContext(ctx, `SELECT `+projectAgentColumns+` FROM project_agents WHERE id = $1`, id))
}

func (s *Store) GetProjectAgentByPair(ctx context.Context, projectID, userID string) (agent.ProjectAgent, error) {
	return scanProjectAgent(s.db.QueryRowContext(ctx, `
		SELECT `+projectAgentColumns+` FROM project_agents WHERE project_id = $1 AND user_id = $2
	`, projectID, userID))
}

func (s *Store) ListProjectAgents(ctx context.Context, projectID string) ([]agent.ProjectAgent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+projectAgentColumns+`
		FROM project_agents
		WHERE $1 = '' OR project_id = $1
		ORDER BY created_at
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []agent.ProjectAgent
	for rows.Next() {
		pa, err := scanProjectAgent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, pa)
	}
	return result, rows.Err()
}

func (s *Store) ListExpiredProjectAgents(ctx context.Context) ([]agent.ProjectAgent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+projectAgentColumns+`
		FROM project_agents
		WHERE is_promoted AND promotion_end IS NOT NULL AND promotion_end < now()
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []agent.ProjectAgent
	for rows.Next() {
		pa, err := scanProjectAgent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, pa)
	}
	return result, rows.Err()
}

const propertyListingColumns = `id, property_id, user_id, is_promoted, promotion_start, promotion_end, created_at, updated_at`

func scanPropertyListing(row interface{ Scan(...interface{}) error }) (agent.PropertyListing, error) {
	var (
		pl    agent.PropertyListing
		start sql.NullTime
		end   sql.NullTime
	)
	err := row.Scan(&pl.ID, &pl.PropertyID, &pl.UserID, &pl.Promotion.IsPromoted, &start, &end, &pl.CreatedAt, &pl.UpdatedAt)
	if start.Valid {
		pl.Promotion.Start = start.Time.UTC()
	}
	if end.Valid {
		pl.Promotion.End = end.Time.UTC()
	}
	return pl, err
}

func (s *Store) CreatePropertyListing(ctx context.Context, pl agent.PropertyListing) (agent.PropertyListing, error) {
	if pl.ID == "" {
		pl.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	pl.CreatedAt = now
	pl.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO property_listings (id, property_id, user_id, is_promoted, promotion_start, promotion_end, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, pl.ID, pl.PropertyID, pl.UserID, pl.Promotion.IsPromoted, toNullTime(pl.Promotion.Start), toNullTime(pl.Promotion.End), pl.CreatedAt, pl.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return agent.PropertyListing{}, fmt.Errorf("user already lists property")
		}
		return agent.PropertyListing{}, err
	}
	return pl, nil
}

func (s *Store) UpdatePropertyListing(ctx context.Context, pl agent.PropertyListing) (agent.PropertyListing, error) {
	existing, err := s.GetPropertyListing(ctx, pl.ID)
	if err != nil {
		return agent.PropertyListing{}, err
	}
	pl.PropertyID = existing.PropertyID
	pl.UserID = existing.UserID
	pl.CreatedAt = existing.CreatedAt
	pl.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE property_listings
		SET is_promoted = $2, promotion_start = $3, promotion_end = $4, updated_at = $5
		WHERE id = $1
	`, pl.ID, pl.Promotion.IsPromoted, toNullTime(pl.Promotion.Start), toNullTime(pl.Promotion.End), pl.UpdatedAt)
	if err != nil {
		return agent.PropertyListing{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return agent.PropertyListing{}, sql.ErrNoRows
	}
	return pl, nil
}

func (s *Store) GetPropertyListing(ctx context.Context, id string) (agent.PropertyListing, error) {
	return scanPropertyListing(s.db.QueryRowContext(ctx, `SELECT `+propertyListingColumns+` FROM property_listings WHERE id = $1`, id))
}

func (s *Store) ListPropertyListings(ctx context.Context, propertyID string) ([]agent.PropertyListing, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+propertyListingColumns+`
		FROM property_listings
		WHERE $1 = '' OR property_id = $1
		ORDER BY created_at
	`, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []agent.PropertyListing
	for rows.Next() {
		pl, err := scanPropertyListing(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, pl)
	}
	return result, rows.Err()
}

func (s *Store) ListExpiredPropertyListings(ctx context.Context) ([]agent.PropertyListing, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+propertyListingColumns+`
		FROM property_listings
		WHERE is_promoted AND promotion_end IS NOT NULL AND promotion_end < now()
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []agent.PropertyListing
	for rows.Next() {
		pl, err := scanPropertyListing(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, pl)
	}
	return result, rows.Err()
}

// --- ForumStore -------------------------------------------------------------

const categoryColumns = `id, parent_id, name, slug, city, state, property_type, created_at, updated_at`

func scanCategory(row interface{ Scan(...interface{}) error }) (forum.Category, error) {
	var (
		c      forum.Category
		parent sql.NullString
	)
	err := row.Scan(&c.ID, &parent, &c.Name, &c.Slug, &c.City, &c.State, &c.PropertyType, &c.CreatedAt, &c.UpdatedAt)
	if parent.Valid {
		c.ParentID = parent.String
	}
	return c, err
}

func (s *Store) CreateCategory(ctx context.Context, c forum.Category) (forum.Category, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO forum_categories (id, parent_id, name, slug, city, state, property_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, c.ID, toNullString(c.ParentID), c.Name, c.Slug, c.City, c.State, c.PropertyType, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return forum.Category{}, fmt.Errorf("category slug %s already exists", c.Slug)
		}
		return forum.Category{}, err
	}
	return c, nil
}

func (s *Store) GetCategory(ctx context.Context, id string) (forum.Category, error) {
	return scanCategory(s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM forum_categories WHERE id = $1`, id))
}

func (s *Store) GetCategoryBySlug(ctx context.Context, slug string) (forum.Category, error) {
	return scanCategory(s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM forum_categories WHERE lower(slug) = lower($1)`, slug))
}

func (s *Store) ListCategories(ctx context.Context) ([]forum.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM forum_categories ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []forum.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (s *Store) CreatePost(ctx context.Context, p forum.Post) (forum.Post, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO forum_posts (id, category_id, author_id, title, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.CategoryID, p.AuthorID, p.Title, p.Body, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return forum.Post{}, err
	}
	return p, nil
}

func (s *Store) GetPost(ctx context.Context, id string) (forum.Post, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, category_id, author_id, title, body, created_at, updated_at FROM forum_posts WHERE id = $1
	`, id)

	var p forum.Post
	if err := row.Scan(&p.ID, &p.CategoryID, &p.AuthorID, &p.Title, &p.Body, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return forum.Post{}, err
	}
	return p, nil
}

func (s *Store) ListPosts(ctx context.Context, categoryID string) ([]forum.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, category_id, author_id, title, body, created_at, updated_at
		FROM forum_posts
		WHERE $1 = '' OR category_id = $1
		ORDER BY created_at DESC
	`, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []forum.Post
	for rows.Next() {
		var p forum.Post
		if err := rows.Scan(&p.ID, &p.CategoryID, &p.AuthorID, &p.Title, &p.Body, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *Store) CreateReply(ctx context.Context, r forum.Reply) (forum.Reply, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO forum_replies (id, post_id, author_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, r.ID, r.PostID, r.AuthorID, r.Body, r.CreatedAt)
	if err != nil {
		return forum.Reply{}, err
	}
	return r, nil
}

func (s *Store) ListReplies(ctx context.Context, postID string) ([]forum.Reply, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, post_id, author_id, body, created_at
		FROM forum_replies
		WHERE post_id = $1
		ORDER BY created_at
	`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []forum.Reply
	for rows.Next() {
		var r forum.Reply
		if err := rows.Scan(&r.ID, &r.PostID, &r.AuthorID, &r.Body, &r.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// --- AdStore ----------------------------------------------------------------

func (s *Store) UpsertSlotConfig(ctx context.Context, sc ad.SlotConfig) (ad.SlotConfig, error) {
	if sc.ID == "" {
		sc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	sc.CreatedAt = now
	sc.UpdatedAt = now

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO ad_slots (id, slot, base_price, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (slot) DO UPDATE SET base_price = EXCLUDED.base_price, active = EXCLUDED.active, updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`, sc.ID, sc.Slot, sc.BasePrice, sc.Active, sc.CreatedAt, sc.UpdatedAt)
	if err := row.Scan(&sc.ID, &sc.CreatedAt); err != nil {
		return ad.SlotConfig{}, err
	}
	return sc, nil
}

func (s *Store) GetSlotConfig(ctx context.Context, slot int) (ad.SlotConfig, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, slot, base_price, active, created_at, updated_at FROM ad_slots WHERE slot = $1
	`, slot)

	var sc ad.SlotConfig
	if err := row.Scan(&sc.ID, &sc.Slot, &sc.BasePrice, &sc.Active, &sc.CreatedAt, &sc.UpdatedAt); err != nil {
		return ad.SlotConfig{}, err
	}
	return sc, nil
}

func (s *Store) ListSlotConfigs(ctx context.Context) ([]ad.SlotConfig, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, slot, base_price, active, created_at, updated_at FROM ad_slots ORDER BY slot
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ad.SlotConfig
	for rows.Next() {
		var sc ad.SlotConfig
		if err := rows.Scan(&sc.ID, &sc.Slot, &sc.BasePrice, &sc.Active, &sc.CreatedAt, &sc.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, sc)
	}
	return result, rows.Err()
}

// CreatePurchases writes every row inside one transaction so a failed slot
// never leaves a partially-billed purchase behind.
func (s *Store) CreatePurchases(ctx context.Context, purchases []ad.Purchase) ([]ad.Purchase, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	now := time.Now().UTC()
	created := make([]ad.Purchase, 0, len(purchases))
	for _, p := range purchases {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		p.CreatedAt = now

		_, err := tx.ExecContext(ctx, `
			INSERT INTO ad_purchases (id, buyer_id, slot, property_id, project_id, days, base_amount, discount_percent, final_amount, starts_at, ends_at, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, p.ID, p.BuyerID, p.Slot, toNullString(p.PropertyID), toNullString(p.ProjectID),
			p.Days, p.BaseAmount, p.DiscountPercent, p.FinalAmount, p.StartsAt, p.EndsAt, p.CreatedAt)
		if err != nil {
			return nil, err
		}
		created = append(created, p)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return created, nil
}

const purchaseColumns = `id, buyer_id, slot, property_id, project_id, days, base_amount, discount_percent, final_amount, starts_at, ends_at, created_at`

func scanPurchase(row interface{ Scan(...interface{}) error }) (ad.Purchase, error) {
	var (
		p          ad.Purchase
		propertyID sql.NullString
		projectID  sql.NullString
	)
	err := row.Scan(&p.ID, &p.BuyerID, &p.Slot, &propertyID, &projectID, &p.Days,
		&p.BaseAmount, &p.DiscountPercent, &p.FinalAmount, &p.StartsAt, &p.EndsAt, &p.CreatedAt)
	if propertyID.Valid {
		p.PropertyID = propertyID.String
	}
	if projectID.Valid {
		p.ProjectID = projectID.String
	}
	return p, err
}

func (s *Store) ListPurchases(ctx context.Context, buyerID string) ([]ad.Purchase, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+purchaseColumns+`
		FROM ad_purchases
		WHERE $1 = '' OR buyer_id = $1
		ORDER BY created_at DESC
	`, buyerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ad.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *Store) ListActivePurchases(ctx context.Context) ([]ad.Purchase, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+purchaseColumns+`
		FROM ad_purchases
		WHERE starts_at <= now() AND ends_at >= now()
		ORDER BY slot
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ad.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// --- SessionStore -----------------------------------------------------------

func (s *Store) CreateSession(ctx context.Context, sess auth.Session) (auth.Session, error) {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	sess.CreatedAt = now
	sess.LastSeenAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, token_hash, expires_at, created_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, sess.ID, sess.UserID, sess.TokenHash, sess.ExpiresAt, sess.CreatedAt, sess.LastSeenAt)
	if err != nil {
		return auth.Session{}, err
	}
	return sess, nil
}

func (s *Store) GetSessionByTokenHash(ctx context.Context, tokenHash string) (auth.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, expires_at, created_at, last_seen_at
		FROM sessions
		WHERE token_hash = $1 AND expires_at > now()
	`, tokenHash)

	var sess auth.Session
	if err := row.Scan(&sess.ID, &sess.UserID, &sess.TokenHash, &sess.ExpiresAt, &sess.CreatedAt, &sess.LastSeenAt); err != nil {
		return auth.Session{}, err
	}
	return sess, nil
}

func (s *Store) TouchSession(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE sessions SET last_seen_at = now() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Store) DeleteExpiredSessions(ctx context.Context) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, err
	}
	rows, _ := result.RowsAffected()
	return int(rows), nil
}

// --- helpers ----------------------------------------------------------------

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func toNullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
