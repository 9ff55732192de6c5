package subscriptions

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/backer/pkg/apierrors"
	"github.com/platinummonkey/backer/pkg/authz"
)

// BenefitType selects the properties schema of a benefit
type BenefitType string

const (
	BenefitTypeCustom           BenefitType = "custom"
	BenefitTypeArticles         BenefitType = "articles"
	BenefitTypeAds              BenefitType = "ads"
	BenefitTypeDiscord          BenefitType = "discord"
	BenefitTypeGitHubRepository BenefitType = "github_repository"
)

// Valid reports whether t is a known benefit type
func (t BenefitType) Valid() bool {
	switch t {
	case BenefitTypeCustom, BenefitTypeArticles, BenefitTypeAds, BenefitTypeDiscord, BenefitTypeGitHubRepository:
		return true
	}
	return false
}

// Properties is the type specific configuration of a benefit
type Properties interface {
	BenefitType() BenefitType
	Validate() error
}

// CustomProperties configures a free form benefit
type CustomProperties struct {
	Note string `json:"note,omitempty"`
}

func (CustomProperties) BenefitType() BenefitType { return BenefitTypeCustom }

func (p CustomProperties) Validate() error { return nil }

// ArticlesProperties configures access to premium articles
type ArticlesProperties struct {
	PaidArticles bool `json:"paid_articles"`
}

func (ArticlesProperties) BenefitType() BenefitType { return BenefitTypeArticles }

func (p ArticlesProperties) Validate() error { return nil }

// AdsProperties configures an ad placement
type AdsProperties struct {
	ImageHeight int `json:"image_height"`
	ImageWidth  int `json:"image_width"`
}

func (AdsProperties) BenefitType() BenefitType { return BenefitTypeAds }

func (p AdsProperties) Validate() error {
	if p.ImageHeight <= 0 || p.ImageWidth <= 0 {
		return apierrors.BadRequest("image_height and image_width must be positive")
	}
	return nil
}

// DiscordProperties configures a role granted on a Discord guild
type DiscordProperties struct {
	GuildID string `json:"guild_id"`
	RoleID  string `json:"role_id"`
}

func (DiscordProperties) BenefitType() BenefitType { return BenefitTypeDiscord }

func (p DiscordProperties) Validate() error {
	if p.GuildID == "" || p.RoleID == "" {
		return apierrors.BadRequest("guild_id and role_id are required")
	}
	return nil
}

// GitHubRepositoryProperties configures collaborator access to a repository
type GitHubRepositoryProperties struct {
	RepositoryOwner string `json:"repository_owner"`
	RepositoryName  string `json:"repository_name"`
	Permission      string `json:"permission"`
}

func (GitHubRepositoryProperties) BenefitType() BenefitType { return BenefitTypeGitHubRepository }

var githubPermissions = map[string]bool{
	"pull": true, "triage": true, "push": true, "maintain": true, "admin": true,
}

func (p GitHubRepositoryProperties) Validate() error {
	if p.RepositoryOwner == "" || p.RepositoryName == "" {
		return apierrors.BadRequest("repository_owner and repository_name are required")
	}
	if !githubPermissions[p.Permission] {
		return apierrors.BadRequest("Invalid permission: %s", p.Permission)
	}
	return nil
}

// DecodeProperties decodes raw JSON into the properties schema of t. Empty
// input yields the zero value of the schema.
func DecodeProperties(t BenefitType, raw json.RawMessage) (Properties, error) {
	var props Properties
	var err error
	switch t {
	case BenefitTypeCustom:
		p := CustomProperties{}
		err = decodeInto(raw, &p)
		props = p
	case BenefitTypeArticles:
		p := ArticlesProperties{}
		err = decodeInto(raw, &p)
		props = p
	case BenefitTypeAds:
		p := AdsProperties{}
		err = decodeInto(raw, &p)
		props = p
	case BenefitTypeDiscord:
		p := DiscordProperties{}
		err = decodeInto(raw, &p)
		props = p
	case BenefitTypeGitHubRepository:
		p := GitHubRepositoryProperties{}
		err = decodeInto(raw, &p)
		props = p
	default:
		return nil, apierrors.BadRequest("Invalid benefit type: %s", t)
	}
	if err != nil {
		return nil, apierrors.BadRequest("Invalid %s properties: %v", t, err)
	}
	return props, nil
}

func decodeInto(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// Benefit is something a subscriber receives through a tier
type Benefit struct {
	ID              uuid.UUID
	Type            BenefitType
	Description     string
	IsTaxApplicable bool
	Selectable      bool
	Deletable       bool
	Properties      Properties
	OrganizationID  *uuid.UUID
	RepositoryID    *uuid.UUID
	CreatedAt       time.Time
	ModifiedAt      *time.Time
}

type benefitJSON struct {
	ID              uuid.UUID       `json:"id"`
	Type            BenefitType     `json:"type"`
	Description     string          `json:"description"`
	IsTaxApplicable bool            `json:"is_tax_applicable"`
	Selectable      bool            `json:"selectable"`
	Deletable       bool            `json:"deletable"`
	Properties      json.RawMessage `json:"properties"`
	OrganizationID  *uuid.UUID      `json:"organization_id,omitempty"`
	RepositoryID    *uuid.UUID      `json:"repository_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	ModifiedAt      *time.Time      `json:"modified_at,omitempty"`
}

// MarshalJSON encodes the benefit with properties matching its type
func (b Benefit) MarshalJSON() ([]byte, error) {
	props := b.Properties
	if props == nil {
		var err error
		if props, err = DecodeProperties(b.Type, nil); err != nil {
			return nil, err
		}
	}
	raw, err := json.Marshal(props)
	if err != nil {
		return nil, fmt.Errorf("failed to encode benefit properties: %w", err)
	}
	return json.Marshal(benefitJSON{
		ID:              b.ID,
		Type:            b.Type,
		Description:     b.Description,
		IsTaxApplicable: b.IsTaxApplicable,
		Selectable:      b.Selectable,
		Deletable:       b.Deletable,
		Properties:      raw,
		OrganizationID:  b.OrganizationID,
		RepositoryID:    b.RepositoryID,
		CreatedAt:       b.CreatedAt,
		ModifiedAt:      b.ModifiedAt,
	})
}

// UnmarshalJSON decodes properties according to the benefit type
func (b *Benefit) UnmarshalJSON(data []byte) error {
	var v benefitJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	props, err := DecodeProperties(v.Type, v.Properties)
	if err != nil {
		return err
	}
	*b = Benefit{
		ID:              v.ID,
		Type:            v.Type,
		Description:     v.Description,
		IsTaxApplicable: v.IsTaxApplicable,
		Selectable:      v.Selectable,
		Deletable:       v.Deletable,
		Properties:      props,
		OrganizationID:  v.OrganizationID,
		RepositoryID:    v.RepositoryID,
		CreatedAt:       v.CreatedAt,
		ModifiedAt:      v.ModifiedAt,
	}
	return nil
}

// AuthzObject implements authz.Resource
func (b Benefit) AuthzObject() authz.Object {
	return authz.Object{
		Kind:           authz.KindBenefit,
		OrganizationID: b.OrganizationID,
		RepositoryID:   b.RepositoryID,
	}
}
