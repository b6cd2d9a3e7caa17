package pg

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/orgkernel/internal/store"
)

// OrgStore implements store.OrgStore.
type OrgStore struct {
	db *sql.DB
}

func NewOrgStore(db *sql.DB) *OrgStore {
	return &OrgStore{db: db}
}

const orgSelectCols = `id, name, lead_agent_id, description, status, settings, created_by, created_at, updated_at`

func (s *OrgStore) CreateOrg(ctx context.Context, org *store.OrgData) error {
	if org.ID == uuid.Nil {
		org.ID = store.GenNewID()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agent_orgs (id, name, lead_agent_id, description, status, settings, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		org.ID, org.Name, org.LeadAgentID, nullIfEmpty(org.Description), org.Status, []byte(org.Settings), org.CreatedBy, org.CreatedAt)
	return err
}

func (s *OrgStore) GetOrg(ctx context.Context, orgID string) (*store.OrgData, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+orgSelectCols+` FROM agent_orgs WHERE id = $1`, orgID)
	org, err := scanOrgRow(row)
	if err == sql.ErrNoRows {
		return nil, store.NewError(store.KindNotFound, orgID, "org not found")
	}
	return org, err
}

func (s *OrgStore) DeleteOrg(ctx context.Context, orgID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM agent_orgs WHERE id = $1`, orgID)
	return err
}

func (s *OrgStore) ListOrgs(ctx context.Context) ([]store.OrgData, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+orgSelectCols+` FROM agent_orgs ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.OrgData
	for rows.Next() {
		org, err := scanOrgRowFromRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *org)
	}
	return out, rows.Err()
}

func (s *OrgStore) AddOrgMember(ctx context.Context, orgID, agentID, role string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agent_org_members (org_id, agent_id, role, joined_at) VALUES ($1, $2, $3, now())
		ON CONFLICT (org_id, agent_id) DO UPDATE SET role = excluded.role`, orgID, agentID, role)
	return err
}

func (s *OrgStore) RemoveOrgMember(ctx context.Context, orgID, agentID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM agent_org_members WHERE org_id = $1 AND agent_id = $2`, orgID, agentID)
	return err
}

func (s *OrgStore) ListOrgMembers(ctx context.Context, orgID string) ([]store.OrgMemberData, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT org_id, agent_id, role, joined_at FROM agent_org_members WHERE org_id = $1 ORDER BY joined_at`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.OrgMemberData
	for rows.Next() {
		var m store.OrgMemberData
		if err := rows.Scan(&m.OrgID, &m.AgentID, &m.Role, &m.JoinedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *OrgStore) GetOrgForAgent(ctx context.Context, agentID string) (*store.OrgData, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+prefixOrgCols("o")+`
		FROM agent_orgs o
		JOIN agent_org_members m ON m.org_id = o.id
		WHERE m.agent_id = $1 AND o.status = $2
		ORDER BY m.joined_at LIMIT 1`, agentID, store.OrgStatusActive)
	org, err := scanOrgRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return org, err
}

func prefixOrgCols(alias string) string {
	return alias + ".id, " + alias + ".name, " + alias + ".lead_agent_id, " + alias + ".description, " +
		alias + ".status, " + alias + ".settings, " + alias + ".created_by, " + alias + ".created_at, " + alias + ".updated_at"
}

func scanOrgRow(row *sql.Row) (*store.OrgData, error) {
	var org store.OrgData
	var description sql.NullString
	var settings []byte
	err := row.Scan(&org.ID, &org.Name, &org.LeadAgentID, &description, &org.Status, &settings, &org.CreatedBy, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return nil, err
	}
	org.Description = description.String
	org.Settings = settings
	return &org, nil
}

func scanOrgRowFromRows(rows *sql.Rows) (*store.OrgData, error) {
	var org store.OrgData
	var description sql.NullString
	var settings []byte
	err := rows.Scan(&org.ID, &org.Name, &org.LeadAgentID, &description, &org.Status, &settings, &org.CreatedBy, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return nil, err
	}
	org.Description = description.String
	org.Settings = settings
	return &org, nil
}
