package sqlite

import (
	"time"

	"github.com/NordCoder/Tubely/internal/domain/identity"
	"github.com/NordCoder/Tubely/internal/domain/relation"

	"github.com/google/uuid"
)

type IdentityModel struct {
	ID               string `gorm:"primaryKey"`
	Handle           string `gorm:"uniqueIndex;not null"`
	Email            string `gorm:"uniqueIndex;not null"`
	FullName         string `gorm:"not null;default:''"`
	PasswordHash     string `gorm:"not null"`
	RefreshTokenHash *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (IdentityModel) TableName() string { return "identities" }

func identityModel(i *identity.Identity) IdentityModel {
	m := IdentityModel{
		ID:           i.ID.String(),
		Handle:       i.Handle,
		Email:        i.Email,
		FullName:     i.FullName,
		PasswordHash: i.PasswordHash,
		CreatedAt:    i.CreatedAt.UTC(),
		UpdatedAt:    i.UpdatedAt.UTC(),
	}
	if i.RefreshTokenHash != "" {
		h := i.RefreshTokenHash
		m.RefreshTokenHash = &h
	}
	return m
}

func (m IdentityModel) domain() (*identity.Identity, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, err
	}
	out := &identity.Identity{
		ID:           id,
		Handle:       m.Handle,
		Email:        m.Email,
		FullName:     m.FullName,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if m.RefreshTokenHash != nil {
		out.RefreshTokenHash = *m.RefreshTokenHash
	}
	return out, nil
}

type RelationModel struct {
	ID        string `gorm:"primaryKey"`
	ActorID   string `gorm:"not null;uniqueIndex:relations_tuple"`
	TargetID  string `gorm:"not null;uniqueIndex:relations_tuple"`
	Kind      string `gorm:"not null;uniqueIndex:relations_tuple"`
	CreatedAt time.Time
}

func (RelationModel) TableName() string { return "relations" }

func relationModel(r *relation.Relation) RelationModel {
	return RelationModel{
		ID:        r.ID.String(),
		ActorID:   r.ActorID.String(),
		TargetID:  r.TargetID.String(),
		Kind:      string(r.Kind),
		CreatedAt: r.CreatedAt.UTC(),
	}
}

func (m RelationModel) domain() (*relation.Relation, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, err
	}
	actor, err := uuid.Parse(m.ActorID)
	if err != nil {
		return nil, err
	}
	target, err := uuid.Parse(m.TargetID)
	if err != nil {
		return nil, err
	}
	return &relation.Relation{
		ID:        id,
		ActorID:   actor,
		TargetID:  target,
		Kind:      relation.Kind(m.Kind),
		CreatedAt: m.CreatedAt,
	}, nil
}
