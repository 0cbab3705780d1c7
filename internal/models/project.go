package models

import "time"

// Project is one generated business blueprint.
type Project struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	LogoRef   string    `json:"logo_ref,omitempty" yaml:"logo_ref,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}
