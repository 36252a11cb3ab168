package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/lambda-provisioner/internal/provisioning"
	"github.com/imamik/lambda-provisioner/internal/provisioning/catalog"
	"github.com/imamik/lambda-provisioner/internal/provisioning/quota"
)

// Quota prints the quota of the configured project next to what a cluster
// of the configured shape would request. It fails when the request would be
// rejected, so it can gate scripted creates.
func Quota(ctx context.Context, configPath string, opts CreateOptions) error {
	e, err := setup(ctx, configPath)
	if err != nil {
		return err
	}

	req := provisioning.RequestFromConfig("quota-check", e.cfg)
	applyOverrides(&req, opts)

	project, err := catalog.NewSelector(e.gateway).FindProject(ctx, req.Project)
	if err != nil {
		return err
	}
	if project == nil {
		return &provisioning.CatalogNotFoundError{Kind: "project", Query: fmt.Sprintf("%+v", req.Project)}
	}

	snap, err := e.gateway.GetQuota(ctx, project.ID)
	if err != nil {
		return fmt.Errorf("failed to get quota of project %s: %w", project.ID, err)
	}

	requirements := quota.FromRequest(&req)
	lines := quota.Report(snap, requirements)
	for _, l := range lines {
		provisioning.SetQuotaAvailable(l.Dimension, l.Available)
	}
	fmt.Print(renderQuota(project, lines))

	return quota.Validate(snap, requirements)
}
