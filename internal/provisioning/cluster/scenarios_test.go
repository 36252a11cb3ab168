package cluster

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-logr/logr/funcr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/imamik/lambda-provisioner/internal/platform/cloud"
	"github.com/imamik/lambda-provisioner/internal/provisioning"
	"github.com/imamik/lambda-provisioner/internal/provisioning/keys"
)

var _ = Describe("Cluster lifecycle", func() {
	var (
		ctx    context.Context
		fake   *fakeCloud
		dir    string
		prov   *Provisioner
		vmSnap cloud.Quota
	)

	BeforeEach(func() {
		ctx = context.Background()
		fake = newFakeCloud()
		dir = filepath.Join(GinkgoT().TempDir(), "lambda_instances")
		vmSnap = cloud.Quota{Limit: 5, Usage: 3}
		fake.GetQuotaFunc = func(_ context.Context, id string) (*cloud.QuotaSnapshot, error) {
			plenty := cloud.Quota{Limit: 1 << 40}
			return &cloud.QuotaSnapshot{
				ProjectID: id, VMs: vmSnap, VCPUs: plenty, RAM: plenty,
				Disk: plenty, FloatingIPs: plenty, PrivateNetworks: plenty,
			}, nil
		}
		logger := funcr.New(func(prefix, args string) {
			fmt.Fprintln(GinkgoWriter, prefix, args)
		}, funcr.Options{Verbosity: 1})
		prov = NewProvisioner(fake, keys.NewManager(keys.NewFileStore(dir)),
			WithObserver(provisioning.NewLogrObserver(logger)),
			WithTimeouts(testTimeouts()),
		)
	})

	Context("admission against a VM quota of limit 5, usage 3", func() {
		It("admits a cluster of two VMs", func() {
			desc, err := prov.Provision(ctx, newRequest(1, provisioning.IPAllocationMaster))
			Expect(err).NotTo(HaveOccurred())
			Expect(desc.Nodes()).To(HaveLen(2))
		})

		It("rejects a cluster of three VMs on the VM dimension", func() {
			_, err := prov.Provision(ctx, newRequest(2, provisioning.IPAllocationMaster))

			var qe *provisioning.QuotaExceededError
			Expect(errors.As(err, &qe)).To(BeTrue())
			Expect(qe.Dimension).To(Equal(provisioning.DimensionVM))
			Expect(fake.CountCalls("CreateNetwork")).To(BeZero())
		})
	})

	Context("creating two slaves with every node public", func() {
		BeforeEach(func() {
			vmSnap = cloud.Quota{Limit: 10}
		})

		It("builds one master, two slaves, three floating IPs and one subnet", func() {
			desc, err := prov.Provision(ctx, newRequest(2, provisioning.IPAllocationAll))
			Expect(err).NotTo(HaveOccurred())

			Expect(desc.Master.ID).NotTo(BeEmpty())
			Expect(desc.Slaves).To(HaveLen(2))
			Expect(desc.FloatingIPs).To(HaveLen(3))
			Expect(desc.NetworkID).NotTo(BeEmpty())
			Expect(desc.Subnet.CIDR).To(Equal("192.168.0.0/24"))
			Expect(fake.CountCalls("CreateNetwork")).To(Equal(1))
			Expect(fake.CountCalls("CreateSubnet")).To(Equal(1))
		})

		It("stores the private key owner-only and removes it on teardown", func() {
			desc, err := prov.Provision(ctx, newRequest(2, provisioning.IPAllocationAll))
			Expect(err).NotTo(HaveOccurred())

			path := filepath.Join(dir, desc.ClusterID)
			info, err := os.Stat(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))

			Expect(prov.Decommission(ctx, desc)).To(Succeed())
			_, err = os.Stat(path)
			Expect(errors.Is(err, os.ErrNotExist)).To(BeTrue())
		})
	})

	Context("decommissioning a cluster whose master is already deleted", func() {
		var desc *provisioning.ClusterDescriptor

		BeforeEach(func() {
			vmSnap = cloud.Quota{Limit: 10}
			var err error
			desc, err = prov.Provision(ctx, newRequest(2, provisioning.IPAllocationMaster))
			Expect(err).NotTo(HaveOccurred())
			fake.setStatus(desc.Master.ID, cloud.StatusDeleted)
		})

		It("skips the master, deletes the slaves and succeeds", func() {
			Expect(prov.Decommission(ctx, desc)).To(Succeed())

			calls := fake.Calls()
			Expect(calls).NotTo(ContainElement("DeleteVM " + desc.Master.ID))
			Expect(calls).To(ContainElement("DeleteVM " + desc.Slaves[0].ID))
			Expect(calls).To(ContainElement("DeleteVM " + desc.Slaves[1].ID))
			Expect(fake.liveVMs()).To(BeZero())
		})

		It("succeeds again when run a second time", func() {
			Expect(prov.Decommission(ctx, desc)).To(Succeed())
			Expect(prov.Decommission(ctx, desc)).To(Succeed())
		})
	})
})
