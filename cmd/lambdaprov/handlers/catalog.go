package handlers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/imamik/lambda-provisioner/internal/platform/cloud"
)

// Flavors lists the flavors of the configured cloud, smallest first.
func Flavors(ctx context.Context, configPath string) error {
	e, err := setup(ctx, configPath)
	if err != nil {
		return err
	}
	flavors, err := e.gateway.ListFlavors(ctx)
	if err != nil {
		return fmt.Errorf("failed to list flavors: %w", err)
	}
	sort.SliceStable(flavors, func(i, j int) bool {
		a, b := flavors[i], flavors[j]
		if a.VCPUs != b.VCPUs {
			return a.VCPUs < b.VCPUs
		}
		if a.RAM != b.RAM {
			return a.RAM < b.RAM
		}
		return a.Disk < b.Disk
	})
	fmt.Print(renderFlavors(flavors))
	return nil
}

// Images lists the images of the configured cloud whose name contains filter.
func Images(ctx context.Context, configPath, filter string) error {
	e, err := setup(ctx, configPath)
	if err != nil {
		return err
	}
	images, err := e.gateway.ListImages(ctx)
	if err != nil {
		return fmt.Errorf("failed to list images: %w", err)
	}
	if filter != "" {
		images = lo.Filter(images, func(img cloud.Image, _ int) bool {
			return strings.Contains(img.Name, filter)
		})
	}
	fmt.Print(renderImages(images))
	return nil
}
