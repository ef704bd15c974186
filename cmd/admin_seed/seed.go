package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	appErrors "casamento/internal/errors"
	"casamento/internal/models"
	"casamento/internal/repositories"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Seed struct {
	Presents []PresentSeed `yaml:"presents"`
	Invites  []InviteSeed  `yaml:"invites"`
}

type PresentSeed struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Price    string `yaml:"price"`
	ImageURL string `yaml:"imageUrl"`
}

type InviteSeed struct {
	Name      string   `yaml:"name"`
	PIN       string   `yaml:"pin"`
	MaxGuests int      `yaml:"maxGuests"`
	Members   []string `yaml:"members"`
}

type Result struct {
	PresentsCreated int
	PresentsSkipped int
	InvitesCreated  int
	InvitesSkipped  int
}

// ParseSeed decodes and checks a seed file.
func ParseSeed(r io.Reader) (*Seed, error) {
	var seed Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	for i, p := range seed.Presents {
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("presents[%d]: name is required", i)
		}
		price, err := decimal.NewFromString(p.Price)
		if err != nil || !price.IsPositive() {
			return nil, fmt.Errorf("presents[%d] %q: invalid price %q", i, p.Name, p.Price)
		}
	}
	for i, inv := range seed.Invites {
		if strings.TrimSpace(inv.Name) == "" {
			return nil, fmt.Errorf("invites[%d]: name is required", i)
		}
		if inv.MaxGuests < 1 {
			seed.Invites[i].MaxGuests = max(len(inv.Members), 1)
		}
	}
	return &seed, nil
}

// Apply creates what is missing. Presents are matched by id and invites by
// PIN, or by name when they have none, so running a seed twice is harmless.
func Apply(ctx context.Context, store *repositories.Store, seed *Seed) (Result, error) {
	var res Result

	for _, p := range seed.Presents {
		if p.ID != "" {
			_, err := store.Presents.GetByID(ctx, p.ID)
			if err == nil {
				res.PresentsSkipped++
				continue
			}
			if !errors.Is(err, appErrors.ErrPresentNotFound) {
				return res, fmt.Errorf("look up present %s: %w", p.ID, err)
			}
		}
		present := &models.Present{
			ID:       p.ID,
			Name:     strings.TrimSpace(p.Name),
			Price:    decimal.RequireFromString(p.Price).Round(2),
			ImageURL: p.ImageURL,
		}
		if err := store.Presents.Create(ctx, present); err != nil {
			return res, fmt.Errorf("create present %q: %w", p.Name, err)
		}
		res.PresentsCreated++
	}

	for _, inv := range seed.Invites {
		var err error
		if inv.PIN != "" {
			_, err = store.Invites.FindByPIN(ctx, inv.PIN)
		} else {
			_, err = store.Invites.FindByName(ctx, models.NormalizeName(inv.Name))
		}
		if err == nil {
			res.InvitesSkipped++
			continue
		}
		if !errors.Is(err, appErrors.ErrInviteNotFound) {
			return res, fmt.Errorf("look up invite %q: %w", inv.Name, err)
		}

		invite := &models.Invite{
			Name:      strings.TrimSpace(inv.Name),
			PIN:       inv.PIN,
			MaxGuests: inv.MaxGuests,
			Members:   inv.Members,
		}
		if err := store.Invites.Create(ctx, invite); err != nil {
			return res, fmt.Errorf("create invite %q: %w", inv.Name, err)
		}
		res.InvitesCreated++
	}
	return res, nil
}
