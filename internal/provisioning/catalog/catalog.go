// Package catalog resolves abstract resource requests into concrete catalog
// entries by first-match search.
//
// Flavors match when every constrained attribute is exactly equal, with
// unset constraints defaulting to 1 vCPU, 1024 MiB RAM, 40 GB disk and
// allow-create. Absence of a match is reported as (nil, nil), leaving the
// caller to decide whether it is fatal.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/imamik/lambda-provisioner/internal/platform/cloud"
)

// Default flavor constraints.
const (
	DefaultVCPUs = 1
	DefaultRAM   = 1024
	DefaultDisk  = 40
)

// FlavorConstraints selects a flavor. Nil fields take their default.
type FlavorConstraints struct {
	VCPUs       *int
	RAM         *int
	Disk        *int
	AllowCreate *bool
}

// Size builds fully specified constraints for a node size.
func Size(vcpus, ram, disk int) FlavorConstraints {
	return FlavorConstraints{VCPUs: &vcpus, RAM: &ram, Disk: &disk}
}

func (c FlavorConstraints) resolved() (vcpus, ram, disk int, allowCreate bool) {
	return lo.FromPtrOr(c.VCPUs, DefaultVCPUs),
		lo.FromPtrOr(c.RAM, DefaultRAM),
		lo.FromPtrOr(c.Disk, DefaultDisk),
		lo.FromPtrOr(c.AllowCreate, true)
}

func (c FlavorConstraints) String() string {
	vcpus, ram, disk, allow := c.resolved()
	return fmt.Sprintf("vcpus=%d ram=%d disk=%d allow_create=%t", vcpus, ram, disk, allow)
}

// Matches reports whether f satisfies every constraint exactly.
func (c FlavorConstraints) Matches(f cloud.Flavor) bool {
	vcpus, ram, disk, allow := c.resolved()
	return f.VCPUs == vcpus && f.RAM == ram && f.Disk == disk && f.AllowCreate == allow
}

// Lister is the subset of the cloud gateway the selector reads.
type Lister interface {
	ListFlavors(ctx context.Context) ([]cloud.Flavor, error)
	ListImages(ctx context.Context) ([]cloud.Image, error)
	ListProjects(ctx context.Context, filter cloud.ProjectFilter) ([]cloud.Project, error)
}

// Selector performs first-match lookups against the cloud catalog.
type Selector struct {
	cloud Lister
}

// NewSelector creates a selector over c.
func NewSelector(c Lister) *Selector {
	return &Selector{cloud: c}
}

// FindFlavor returns the first flavor matching c, or nil when none does.
func (s *Selector) FindFlavor(ctx context.Context, c FlavorConstraints) (*cloud.Flavor, error) {
	flavors, err := s.cloud.ListFlavors(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list flavors: %w", err)
	}
	f, ok := lo.Find(flavors, c.Matches)
	if !ok {
		return nil, nil
	}
	return &f, nil
}

// FindImage returns the first image whose name contains substring, or nil when none does.
func (s *Selector) FindImage(ctx context.Context, substring string) (*cloud.Image, error) {
	images, err := s.cloud.ListImages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	img, ok := lo.Find(images, func(i cloud.Image) bool {
		return strings.Contains(i.Name, substring)
	})
	if !ok {
		return nil, nil
	}
	return &img, nil
}

// FindImageByID returns the image with the given id, or nil when none does.
func (s *Selector) FindImageByID(ctx context.Context, id string) (*cloud.Image, error) {
	images, err := s.cloud.ListImages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	img, ok := lo.Find(images, func(i cloud.Image) bool { return i.ID == id })
	if !ok {
		return nil, nil
	}
	return &img, nil
}

// FindProject returns the first project matching filter, or nil when none does.
// The filter is applied locally as well, since providers may ignore some fields.
func (s *Selector) FindProject(ctx context.Context, filter cloud.ProjectFilter) (*cloud.Project, error) {
	projects, err := s.cloud.ListProjects(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	p, ok := lo.Find(projects, filter.Matches)
	if !ok {
		return nil, nil
	}
	return &p, nil
}
