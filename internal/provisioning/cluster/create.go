package cluster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/imamik/lambda-provisioner/internal/platform/cloud"
	"github.com/imamik/lambda-provisioner/internal/poller"
	"github.com/imamik/lambda-provisioner/internal/provisioning"
	"github.com/imamik/lambda-provisioner/internal/provisioning/catalog"
	"github.com/imamik/lambda-provisioner/internal/provisioning/keys"
	"github.com/imamik/lambda-provisioner/internal/provisioning/quota"
	"github.com/imamik/lambda-provisioner/internal/util/labels"
	"github.com/imamik/lambda-provisioner/internal/util/naming"
)

const (
	resourceNetwork    = "network"
	resourceSubnet     = "subnet"
	resourceFloatingIP = "floating_ip"
	resourceVM         = "vm"
)

// admit validates the request, resolves the project and checks quota.
func admit(ctx *provisioning.Context) error {
	req := ctx.Request
	for _, ve := range req.Check() {
		if !ve.IsError() {
			provisioning.LogValidationWarning(ctx.Observer, ve)
		}
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid cluster request: %w", err)
	}

	project, err := catalog.NewSelector(ctx.Cloud).FindProject(ctx, req.Project)
	if err != nil {
		return provisioning.Remote("list", "project", "", err)
	}
	if project == nil {
		return &provisioning.CatalogNotFoundError{Kind: "project", Query: fmt.Sprintf("%+v", req.Project)}
	}
	ctx.State.Project = project

	snap, err := ctx.Cloud.GetQuota(ctx, project.ID)
	if err != nil {
		return provisioning.Remote("get", "quota", project.ID, err)
	}
	ctx.State.Quota = snap

	need := quota.FromRequest(req)
	for _, l := range quota.Report(snap, need) {
		provisioning.SetQuotaAvailable(l.Dimension, l.Available)
	}
	return quota.Validate(snap, need)
}

// resolveCatalog picks the flavors and the image. A missing entry aborts
// before anything is created.
func resolveCatalog(ctx *provisioning.Context) error {
	req := ctx.Request
	sel := catalog.NewSelector(ctx.Cloud)

	master, err := findFlavor(ctx, sel, req.Master)
	if err != nil {
		return err
	}
	ctx.State.MasterFlavor = master

	if req.Slaves > 0 {
		slave, err := findFlavor(ctx, sel, req.Slave)
		if err != nil {
			return err
		}
		ctx.State.SlaveFlavor = slave
	}

	var img *cloud.Image
	query := req.ImageName
	if req.ImageID != "" {
		query = req.ImageID
		img, err = sel.FindImageByID(ctx, req.ImageID)
	} else {
		img, err = sel.FindImage(ctx, req.ImageName)
	}
	if err != nil {
		return provisioning.Remote("list", "image", "", err)
	}
	if img == nil {
		return &provisioning.CatalogNotFoundError{Kind: "image", Query: query}
	}
	ctx.State.Image = img

	ctx.Observer.Printf("Selected image %s (%s)", img.Name, img.ID)
	return nil
}

func findFlavor(ctx *provisioning.Context, sel *catalog.Selector, size provisioning.NodeSize) (*cloud.Flavor, error) {
	constraints := catalog.Size(size.VCPUs, size.RAM, size.Disk)
	f, err := sel.FindFlavor(ctx, constraints)
	if err != nil {
		return nil, provisioning.Remote("list", "flavor", "", err)
	}
	if f == nil {
		return nil, &provisioning.CatalogNotFoundError{Kind: "flavor", Query: constraints.String()}
	}
	ctx.Observer.Printf("Selected flavor %s (%s) for %s", f.Name, f.ID, constraints)
	return f, nil
}

// prepareKeys generates the cluster key pair and the per-role boot files.
func (p *Provisioner) prepareKeys(ctx *provisioning.Context) error {
	kp, err := p.keys.Generate()
	if err != nil {
		return err
	}
	ctx.State.KeyPair = kp
	ctx.State.MasterFiles = keys.Personality(kp, provisioning.RoleMaster, ctx.Request.ExtraPublicKeys)
	ctx.State.SlaveFiles = keys.Personality(kp, provisioning.RoleSlave, ctx.Request.ExtraPublicKeys)
	return nil
}

func createNetwork(ctx *provisioning.Context) error {
	req := ctx.Request
	name := naming.Network(req.NamePrefix)

	provisioning.LogResourceCreating(ctx.Observer, "network", resourceNetwork, name)
	network, err := ctx.Cloud.CreateNetwork(ctx, cloud.NetworkSpec{
		Name:      name,
		ProjectID: ctx.State.Project.ID,
		Labels:    labels.NewLabelBuilder(req.ClusterID).Build(),
	})
	if err != nil {
		provisioning.LogResourceFailed(ctx.Observer, "network", resourceNetwork, name, err)
		return provisioning.Remote("create", resourceNetwork, name, err)
	}
	ctx.State.Network = network
	provisioning.LogResourceCreated(ctx.Observer, "network", resourceNetwork, name, network.ID)

	subnetName := naming.Subnet(req.NamePrefix)
	provisioning.LogResourceCreating(ctx.Observer, "network", resourceSubnet, subnetName)
	subnet, err := ctx.Cloud.CreateSubnet(ctx, cloud.SubnetSpec{
		NetworkID: network.ID,
		Name:      subnetName,
		CIDR:      provisioning.SubnetCIDR,
		Gateway:   provisioning.SubnetGateway,
		DHCP:      true,
	})
	if err != nil {
		provisioning.LogResourceFailed(ctx.Observer, "network", resourceSubnet, subnetName, err)
		return provisioning.Remote("create", resourceSubnet, subnetName, err)
	}
	ctx.State.Subnet = subnet
	provisioning.LogResourceCreated(ctx.Observer, "network", resourceSubnet, subnetName, subnet.ID)
	return nil
}

// nodeNames returns the master name followed by every slave name.
func nodeNames(req *provisioning.ClusterRequest) []string {
	names := make([]string, 0, req.ClusterSize())
	names = append(names, naming.Master(req.NamePrefix))
	for i := 1; i <= req.Slaves; i++ {
		names = append(names, naming.Slave(req.NamePrefix, i))
	}
	return names
}

// reserveFloatingIPs reserves one address per node the policy covers,
// master first.
func reserveFloatingIPs(ctx *provisioning.Context) error {
	req := ctx.Request
	names := nodeNames(req)
	count := req.FloatingIPCount()
	if count == 0 {
		ctx.Observer.Printf("IP allocation %q reserves no floating IPs", req.IPAllocation)
		return nil
	}

	for i := range count {
		name := naming.FloatingIP(names[i])
		provisioning.LogResourceCreating(ctx.Observer, "floating-ips", resourceFloatingIP, name)
		fip, err := ctx.Cloud.CreateFloatingIP(ctx, cloud.FloatingIPSpec{
			Name:      name,
			ProjectID: ctx.State.Project.ID,
			Labels:    labels.NewLabelBuilder(req.ClusterID).Build(),
		})
		if err != nil {
			provisioning.LogResourceFailed(ctx.Observer, "floating-ips", resourceFloatingIP, name, err)
			return provisioning.Remote("create", resourceFloatingIP, name, err)
		}
		ctx.State.FloatingIPs = append(ctx.State.FloatingIPs, *fip)
		provisioning.LogResourceCreated(ctx.Observer, "floating-ips", resourceFloatingIP, fip.Address, fip.ID)
	}
	return nil
}

// floatingIPFor returns the reserved address of the node at index, if any.
func floatingIPFor(ctx *provisioning.Context, index int) *cloud.FloatingIP {
	if index >= len(ctx.State.FloatingIPs) {
		return nil
	}
	fip := ctx.State.FloatingIPs[index]
	return &fip
}

func createVM(ctx *provisioning.Context, phase string, role provisioning.Role, name string, index int) (*provisioning.Node, error) {
	flavor, files := ctx.State.MasterFlavor, ctx.State.MasterFiles
	if role == provisioning.RoleSlave {
		flavor, files = ctx.State.SlaveFlavor, ctx.State.SlaveFiles
	}
	fip := floatingIPFor(ctx, index)

	provisioning.LogResourceCreating(ctx.Observer, phase, resourceVM, name)
	vm, err := ctx.Cloud.CreateVM(ctx, cloud.VMSpec{
		Name:        name,
		FlavorID:    flavor.ID,
		ImageID:     ctx.State.Image.ID,
		ProjectID:   ctx.State.Project.ID,
		NetworkID:   ctx.State.Network.ID,
		FloatingIP:  fip,
		Personality: files,
		Labels:      labels.NewLabelBuilder(ctx.Request.ClusterID).WithRole(string(role)).Build(),
	})
	if err != nil {
		provisioning.LogResourceFailed(ctx.Observer, phase, resourceVM, name, err)
		err = provisioning.Remote("create", resourceVM, name, err)
		if vm == nil || vm.ID == "" {
			return nil, err
		}
	} else {
		provisioning.LogResourceCreated(ctx.Observer, phase, resourceVM, name, vm.ID)
	}

	return &provisioning.Node{
		Role:       role,
		ID:         vm.ID,
		Name:       name,
		FloatingIP: fip,
		AdminPass:  vm.AdminPass,
	}, err
}

// createMaster records the master whenever the VM exists, even on error,
// so teardown of the fragment removes it.
func createMaster(ctx *provisioning.Context) error {
	node, err := createVM(ctx, "master", provisioning.RoleMaster, naming.Master(ctx.Request.NamePrefix), 0)
	if node != nil {
		ctx.State.Master = node
	}
	return err
}

// createSlaves creates the slaves one at a time. A failure leaves the
// slaves created so far in the state.
func createSlaves(ctx *provisioning.Context) error {
	for i := 1; i <= ctx.Request.Slaves; i++ {
		node, err := createVM(ctx, "slaves", provisioning.RoleSlave, naming.Slave(ctx.Request.NamePrefix, i), i)
		if node != nil {
			ctx.State.Slaves = append(ctx.State.Slaves, *node)
		}
		if err != nil {
			return err
		}
		ctx.Observer.Progress("slaves", i, ctx.Request.Slaves)
	}
	return nil
}

// waitActive waits for the master and then each slave to become ACTIVE and
// records their internal addresses.
func waitActive(ctx *provisioning.Context) error {
	if !ctx.Request.Wait {
		ctx.Observer.Printf("Not waiting for VMs to become active")
		return nil
	}

	if err := waitNode(ctx, ctx.State.Master); err != nil {
		return err
	}
	for i := range ctx.State.Slaves {
		if err := waitNode(ctx, &ctx.State.Slaves[i]); err != nil {
			return err
		}
	}
	return nil
}

func waitNode(ctx *provisioning.Context, node *provisioning.Node) error {
	status, err := waitForStatus(ctx, ctx.Cloud, node.ID, cloud.StatusBuild, cloud.VMStatus.Terminal, ctx.Timeouts.ServerBuild)
	if err != nil {
		return err
	}
	if status != cloud.StatusActive {
		return provisioning.Remote("build", resourceVM, node.ID, fmt.Errorf("VM entered status %s", status))
	}

	st, err := ctx.Cloud.GetVM(ctx, node.ID)
	if err != nil {
		return provisioning.Remote("get", resourceVM, node.ID, err)
	}
	node.InternalIP = st.AddressIn(provisioning.SubnetPrefix)
	ctx.Observer.Printf("VM %s is active (internal %s, public %s)", node.Name, node.InternalIP, node.PublicAddress())
	return nil
}

// waitForStatus waits until done reports true for the VM's status,
// re-polling through intermediate states within a single maxWait budget.
func waitForStatus(ctx context.Context, compute cloud.ComputeService, id string, prior cloud.VMStatus, done func(cloud.VMStatus) bool, maxWait time.Duration) (cloud.VMStatus, error) {
	start := time.Now()
	status := prior
	for {
		remaining := max(maxWait-time.Since(start), 0)
		next, err := compute.WaitVM(ctx, id, status, remaining)
		if err != nil {
			if errors.Is(err, poller.ErrTimeout) {
				return next, &provisioning.PollTimeoutError{
					ResourceID:  id,
					PriorStatus: prior,
					Waited:      time.Since(start),
					Err:         err,
				}
			}
			return next, provisioning.Remote("wait", resourceVM, id, err)
		}
		if done(next) {
			return next, nil
		}
		status = next
	}
}

func (p *Provisioner) persistKey(ctx *provisioning.Context) error {
	if err := p.keys.Persist(ctx, ctx.Request.ClusterID, ctx.State.KeyPair); err != nil {
		return err
	}
	ctx.Observer.Printf("Private key stored at %s", p.keys.Store().Location(ctx.Request.ClusterID))
	return nil
}
