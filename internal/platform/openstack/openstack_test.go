package openstack

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gophercloud/gophercloud"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/lambda-provisioner/internal/config"
	"github.com/imamik/lambda-provisioner/internal/platform/cloud"
)

// service is one mocked OpenStack endpoint.
type service struct {
	server *httptest.Server
	mux    *http.ServeMux
}

func newService(t *testing.T) *service {
	t.Helper()
	mux := http.NewServeMux()
	s := &service{server: httptest.NewServer(mux), mux: mux}
	t.Cleanup(s.server.Close)
	return s
}

func (s *service) client() *gophercloud.ServiceClient {
	return &gophercloud.ServiceClient{
		ProviderClient: &gophercloud.ProviderClient{TokenID: "test-token"},
		Endpoint:       s.server.URL + "/",
	}
}

func (s *service) handle(pattern string, handler http.HandlerFunc) {
	s.mux.HandleFunc(pattern, handler)
}

// testCloud wires a Client to one mocked endpoint per service and records calls.
type testCloud struct {
	identity, compute, network, volume *service

	mu    sync.Mutex
	calls []string
}

func newTestCloud(t *testing.T) *testCloud {
	t.Helper()
	return &testCloud{
		identity: newService(t),
		compute:  newService(t),
		network:  newService(t),
		volume:   newService(t),
	}
}

func (tc *testCloud) record(r *http.Request) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.calls = append(tc.calls, r.Method+" "+r.URL.Path)
}

func (tc *testCloud) recorded() []string {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return append([]string(nil), tc.calls...)
}

// reply records the request and answers with status and the raw JSON body.
func (tc *testCloud) reply(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tc.record(r)
		if body == "" {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func (tc *testCloud) gateway(opts ...Option) *Client {
	base := []Option{WithTimeouts(config.TestTimeouts()), WithExternalNetwork("ext-net")}
	return NewClient(ServiceClients{
		Identity: tc.identity.client(),
		Compute:  tc.compute.client(),
		Network:  tc.network.client(),
		Volume:   tc.volume.client(),
	}, append(base, opts...)...)
}

func TestClient_ListProjects(t *testing.T) {
	t.Parallel()

	tc := newTestCloud(t)
	tc.identity.handle("/projects", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "lambda", r.URL.Query().Get("name"))
		tc.reply(http.StatusOK, `{"projects":[
			{"id":"p1","name":"lambda","enabled":true,"domain_id":"default"},
			{"id":"p2","name":"lambda","enabled":false,"domain_id":"default"}
		],"links":{"next":null}}`)(w, r)
	})

	gw := tc.gateway()
	ctx := context.Background()

	all, err := gw.ListProjects(ctx, cloud.ProjectFilter{Name: "lambda"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, cloud.Project{ID: "p1", Name: "lambda", State: ProjectActive, Owner: "default"}, all[0])

	active, err := gw.ListProjects(ctx, cloud.ProjectFilter{Name: "lambda", State: ProjectActive})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "p1", active[0].ID)
}

func TestClient_GetQuota(t *testing.T) {
	t.Parallel()

	tc := newTestCloud(t)
	tc.compute.handle("/os-quota-sets/p1/detail", tc.reply(http.StatusOK, `{"quota_set":{
		"id":"p1",
		"instances":{"in_use":2,"limit":10,"reserved":1},
		"cores":{"in_use":4,"limit":-1,"reserved":0},
		"ram":{"in_use":4096,"limit":51200,"reserved":0}
	}}`))
	tc.network.handle("/quotas/", tc.reply(http.StatusOK, `{"quota":{
		"floatingip":{"used":1,"limit":5,"reserved":0},
		"network":{"used":3,"limit":3,"reserved":0}
	}}`))
	tc.volume.handle("/os-quota-sets/p1", tc.reply(http.StatusOK, `{"quota_set":{
		"id":"p1",
		"gigabytes":{"in_use":100,"limit":1000,"reserved":0,"allocated":0}
	}}`))

	snap, err := tc.gateway().GetQuota(context.Background(), "p1")
	require.NoError(t, err)

	assert.Equal(t, "p1", snap.ProjectID)
	assert.Equal(t, cloud.Quota{Limit: 10, Usage: 2, Pending: 1}, snap.VMs)
	assert.Equal(t, unlimited, snap.VCPUs.Limit, "-1 means unlimited")
	assert.Equal(t, cloud.Quota{Limit: 51200 * mib, Usage: 4096 * mib}, snap.RAM)
	assert.Equal(t, cloud.Quota{Limit: 1000 * gib, Usage: 100 * gib}, snap.Disk)
	assert.Equal(t, int64(4), snap.FloatingIPs.Available())
	assert.Equal(t, int64(0), snap.PrivateNetworks.Available())
}

func TestClient_GetQuota_WithoutBlockStorage(t *testing.T) {
	t.Parallel()

	tc := newTestCloud(t)
	tc.compute.handle("/os-quota-sets/p1/detail", tc.reply(http.StatusOK, `{"quota_set":{"id":"p1"}}`))
	tc.network.handle("/quotas/", tc.reply(http.StatusOK, `{"quota":{}}`))

	gw := tc.gateway()
	gw.volume = nil

	snap, err := gw.GetQuota(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, cloud.Quota{Limit: unlimited}, snap.Disk)
}

func TestClient_GetQuota_ProjectNotFound(t *testing.T) {
	t.Parallel()

	tc := newTestCloud(t)
	tc.compute.handle("/os-quota-sets/missing/detail", tc.reply(http.StatusNotFound, `{"itemNotFound":{"code":404}}`))

	_, err := tc.gateway().GetQuota(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, cloud.IsNotFound(err))
}

func TestClient_ListFlavorsAndImages(t *testing.T) {
	t.Parallel()

	tc := newTestCloud(t)
	tc.compute.handle("/flavors/detail", tc.reply(http.StatusOK, `{"flavors":[
		{"id":"f1","name":"m1.small","vcpus":2,"ram":2048,"disk":20,"swap":""},
		{"id":"f2","name":"m1.reserved","vcpus":2,"ram":2048,"disk":20,"swap":""},
		{"id":"f3","name":"m1.plain","vcpus":1,"ram":1024,"disk":40,"swap":""}
	]}`))
	tc.compute.handle("/flavors/f1/os-extra_specs", tc.reply(http.StatusOK, `{"extra_specs":{"SNF:allow_create":"true"}}`))
	tc.compute.handle("/flavors/f2/os-extra_specs", tc.reply(http.StatusOK, `{"extra_specs":{"SNF:allow_create":"false"}}`))
	tc.compute.handle("/flavors/f3/os-extra_specs", tc.reply(http.StatusOK, `{"extra_specs":{}}`))
	tc.compute.handle("/images/detail", tc.reply(http.StatusOK, `{"images":[
		{"id":"i1","name":"Debian 12","status":"ACTIVE"}
	]}`))

	gw := tc.gateway()
	ctx := context.Background()

	flavors, err := gw.ListFlavors(ctx)
	require.NoError(t, err)
	assert.Equal(t, []cloud.Flavor{
		{ID: "f1", Name: "m1.small", VCPUs: 2, RAM: 2048, Disk: 20, AllowCreate: true},
		{ID: "f2", Name: "m1.reserved", VCPUs: 2, RAM: 2048, Disk: 20, AllowCreate: false},
		{ID: "f3", Name: "m1.plain", VCPUs: 1, RAM: 1024, Disk: 40, AllowCreate: true},
	}, flavors)

	images, err := gw.ListImages(ctx)
	require.NoError(t, err)
	assert.Equal(t, []cloud.Image{{ID: "i1", Name: "Debian 12", Status: "ACTIVE"}}, images)
}

func TestClient_ListFlavors_ExtraSpecsErrors(t *testing.T) {
	t.Parallel()

	tc := newTestCloud(t)
	tc.compute.handle("/flavors/detail", tc.reply(http.StatusOK, `{"flavors":[
		{"id":"f1","name":"m1.small","vcpus":2,"ram":2048,"disk":20,"swap":""}
	]}`))

	t.Run("missing specs allow creation", func(t *testing.T) {
		flavors, err := tc.gateway().ListFlavors(context.Background())
		require.NoError(t, err)
		require.Len(t, flavors, 1)
		assert.True(t, flavors[0].AllowCreate)
	})

	t.Run("server error fails the listing", func(t *testing.T) {
		tc.compute.handle("/flavors/f1/os-extra_specs", tc.reply(http.StatusInternalServerError, `{}`))
		_, err := tc.gateway().ListFlavors(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get extra specs of flavor f1")
	})
}

func TestClient_CreateVM_WithFloatingIP(t *testing.T) {
	t.Parallel()

	tc := newTestCloud(t)
	var created map[string]map[string]any
	var fipUpdate map[string]map[string]any

	tc.network.handle("/ports", tc.reply(http.StatusCreated, `{"port":{"id":"port1","network_id":"n1"}}`))
	tc.network.handle("/floatingips/f1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&fipUpdate)
		tc.reply(http.StatusOK, `{"floatingip":{"id":"f1","port_id":"port1"}}`)(w, r)
	})
	tc.compute.handle("/servers", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&created)
		tc.reply(http.StatusAccepted, `{"server":{"id":"s1","adminPass":"pw"}}`)(w, r)
	})

	key := []byte("ssh-rsa AAAA root\n")
	vm, err := tc.gateway().CreateVM(context.Background(), cloud.VMSpec{
		Name:       "lambda-master",
		FlavorID:   "f1",
		ImageID:    "i1",
		ProjectID:  "p1",
		NetworkID:  "n1",
		FloatingIP: &cloud.FloatingIP{ID: "f1", Address: "203.0.113.9"},
		Personality: []cloud.PersonalityFile{{
			Path:     "/root/.ssh/authorized_keys",
			Contents: base64.StdEncoding.EncodeToString(key),
			Owner:    "root",
			Group:    "root",
			Mode:     0o600,
		}},
		Labels: map[string]string{"lambda.io/role": "master"},
	})
	require.NoError(t, err)
	assert.Equal(t, &cloud.VM{ID: "s1", Name: "lambda-master", Status: cloud.StatusBuild, AdminPass: "pw"}, vm)

	assert.Equal(t, []string{"POST /ports", "PUT /floatingips/f1", "POST /servers"}, tc.recorded())
	assert.Equal(t, "port1", fipUpdate["floatingip"]["port_id"])

	server := created["server"]
	assert.Equal(t, "lambda-master", server["name"])
	assert.Equal(t, "i1", server["imageRef"])
	assert.Equal(t, "f1", server["flavorRef"])
	assert.Equal(t, []any{map[string]any{"port": "port1"}}, server["networks"])
	assert.Equal(t, map[string]any{"lambda.io/role": "master"}, server["metadata"])

	personality, ok := server["personality"].([]any)
	require.True(t, ok)
	require.Len(t, personality, 1)
	file := personality[0].(map[string]any)
	assert.Equal(t, "/root/.ssh/authorized_keys", file["path"])
	assert.Equal(t, base64.StdEncoding.EncodeToString(key), file["contents"])

	userData, err := base64.StdEncoding.DecodeString(server["user_data"].(string))
	require.NoError(t, err)
	assert.Contains(t, string(userData), "chmod")
	assert.Contains(t, string(userData), "/root/.ssh/authorized_keys")
}

func TestClient_CreateVM_PrivateOnly(t *testing.T) {
	t.Parallel()

	tc := newTestCloud(t)
	var created map[string]map[string]any
	tc.compute.handle("/servers", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&created)
		tc.reply(http.StatusAccepted, `{"server":{"id":"s2","status":"BUILD"}}`)(w, r)
	})

	vm, err := tc.gateway().CreateVM(context.Background(), cloud.VMSpec{
		Name: "lambda-node0", FlavorID: "f1", ImageID: "i1", NetworkID: "n1",
	})
	require.NoError(t, err)
	assert.Equal(t, "s2", vm.ID)
	assert.Equal(t, []string{"POST /servers"}, tc.recorded(), "no port without a floating IP")
	assert.Equal(t, []any{map[string]any{"uuid": "n1"}}, created["server"]["networks"])
	assert.NotContains(t, created["server"], "user_data")
}

func TestClient_CreateVM_BadPersonality(t *testing.T) {
	t.Parallel()

	tc := newTestCloud(t)
	_, err := tc.gateway().CreateVM(context.Background(), cloud.VMSpec{
		Name:        "x",
		Personality: []cloud.PersonalityFile{{Path: "/root/x", Contents: "%%%"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not base64")
	assert.Empty(t, tc.recorded())
}

func TestClient_GetVM(t *testing.T) {
	t.Parallel()

	tc := newTestCloud(t)
	tc.compute.handle("/servers/s1", tc.reply(http.StatusOK, `{"server":{
		"id":"s1","status":"ACTIVE",
		"addresses":{"lambda-vpn":[
			{"addr":"192.168.0.5","version":4},
			{"addr":"fd00::5","version":6}
		]}
	}}`))
	tc.compute.handle("/servers/gone", tc.reply(http.StatusNotFound, `{"itemNotFound":{"code":404}}`))

	gw := tc.gateway()
	ctx := context.Background()

	st, err := gw.GetVM(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, cloud.StatusActive, st.Status)
	assert.Equal(t, []string{"192.168.0.5"}, st.Addresses)

	st, err = gw.GetVM(ctx, "gone")
	require.NoError(t, err)
	assert.Equal(t, cloud.StatusDeleted, st.Status)

	status, err := gw.WaitVM(ctx, "s1", cloud.StatusBuild, time.Second)
	require.NoError(t, err)
	assert.Equal(t, cloud.StatusActive, status)
}

func TestClient_DeleteVM(t *testing.T) {
	t.Parallel()

	tc := newTestCloud(t)
	tc.compute.handle("/servers/s1", tc.reply(http.StatusNoContent, ""))
	tc.compute.handle("/servers/gone", tc.reply(http.StatusNotFound, `{"itemNotFound":{"code":404}}`))
	tc.compute.handle("/servers/bad", tc.reply(http.StatusConflict, `{"conflictingRequest":{"code":409}}`))

	gw := tc.gateway()
	ctx := context.Background()

	require.NoError(t, gw.DeleteVM(ctx, "s1"))
	require.NoError(t, gw.DeleteVM(ctx, "gone"), "missing server counts as deleted")
	err := gw.DeleteVM(ctx, "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to delete server bad")
}

func TestClient_CreateSubnet_RouterAttachFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		deleteCode int
		wantErr    []string
	}{
		{name: "router removed", deleteCode: http.StatusNoContent, wantErr: []string{"failed to attach subnet sn1 to router r1"}},
		{name: "router already gone", deleteCode: http.StatusNotFound, wantErr: []string{"failed to attach subnet sn1 to router r1"}},
		{name: "router delete fails", deleteCode: http.StatusConflict, wantErr: []string{"failed to attach subnet sn1", "failed to delete router r1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tc := newTestCloud(t)
			tc.network.handle("/subnets", tc.reply(http.StatusCreated, `{"subnet":{"id":"sn1","network_id":"n1","cidr":"192.168.0.0/24"}}`))
			tc.network.handle("/networks/n1", tc.reply(http.StatusOK, `{"network":{"id":"n1","name":"lambda-vpn"}}`))
			tc.network.handle("/routers", tc.reply(http.StatusCreated, `{"router":{"id":"r1","name":"lambda-vpn-router"}}`))
			tc.network.handle("/routers/r1/add_router_interface", tc.reply(http.StatusBadRequest, `{"NeutronError":{"message":"no more IPs"}}`))
			tc.network.handle("/routers/r1", tc.reply(tt.deleteCode, ""))

			_, err := tc.gateway().CreateSubnet(context.Background(), cloud.SubnetSpec{NetworkID: "n1", Name: "lambda-subnet", CIDR: "192.168.0.0/24"})
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
			assert.Equal(t, []string{
				"POST /subnets",
				"GET /networks/n1",
				"POST /routers",
				"PUT /routers/r1/add_router_interface",
				"DELETE /routers/r1",
			}, tc.recorded())
		})
	}
}

func TestClient_NetworkLifecycle(t *testing.T) {
	t.Parallel()

	tc := newTestCloud(t)
	var subnet map[string]map[string]any

	tc.network.handle("/networks", tc.reply(http.StatusCreated, `{"network":{"id":"n1","name":"lambda-vpn"}}`))
	tc.network.handle("/networks/n1", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			tc.reply(http.StatusNoContent, "")(w, r)
			return
		}
		tc.reply(http.StatusOK, `{"network":{"id":"n1","name":"lambda-vpn"}}`)(w, r)
	})
	tc.network.handle("/subnets", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&subnet)
		tc.reply(http.StatusCreated, `{"subnet":{"id":"sn1","network_id":"n1","cidr":"192.168.0.0/24","gateway_ip":"192.168.0.1","enable_dhcp":true}}`)(w, r)
	})
	tc.network.handle("/routers", tc.reply(http.StatusCreated, `{"router":{"id":"r1","name":"lambda-vpn-router"}}`))
	tc.network.handle("/routers/r1/add_router_interface", tc.reply(http.StatusOK, `{"id":"r1","subnet_id":"sn1","port_id":"rp1"}`))
	tc.network.handle("/routers/r1/remove_router_interface", tc.reply(http.StatusOK, `{"id":"r1","subnet_id":"sn1","port_id":"rp1"}`))
	tc.network.handle("/routers/r1", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			tc.reply(http.StatusNoContent, "")(w, r)
			return
		}
		tc.reply(http.StatusOK, `{"router":{"id":"r1","name":"lambda-vpn-router"}}`)(w, r)
	})
	tc.network.handle("/ports", tc.reply(http.StatusOK, `{"ports":[
		{"id":"rp1","network_id":"n1","device_owner":"network:router_interface","device_id":"r1"},
		{"id":"dhcp1","network_id":"n1","device_owner":"network:dhcp","device_id":"dhcp"},
		{"id":"port1","network_id":"n1","device_owner":"","device_id":""}
	]}`))
	tc.network.handle("/ports/port1", tc.reply(http.StatusNoContent, ""))

	gw := tc.gateway()
	ctx := context.Background()

	network, err := gw.CreateNetwork(ctx, cloud.NetworkSpec{Name: "lambda-vpn", ProjectID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, &cloud.Network{ID: "n1", Name: "lambda-vpn"}, network)

	sn, err := gw.CreateSubnet(ctx, cloud.SubnetSpec{NetworkID: "n1", Name: "lambda-subnet", CIDR: "192.168.0.0/24", Gateway: "192.168.0.1", DHCP: true})
	require.NoError(t, err)
	assert.Equal(t, &cloud.Subnet{ID: "sn1", NetworkID: "n1", CIDR: "192.168.0.0/24", Gateway: "192.168.0.1", DHCP: true}, sn)
	assert.Equal(t, "192.168.0.1", subnet["subnet"]["gateway_ip"])
	assert.Equal(t, true, subnet["subnet"]["enable_dhcp"])

	require.NoError(t, gw.DeleteNetwork(ctx, "n1"))

	assert.Equal(t, []string{
		"POST /networks",
		"POST /subnets",
		"GET /networks/n1",
		"POST /routers",
		"PUT /routers/r1/add_router_interface",
		"GET /networks/n1",
		"GET /ports",
		"PUT /routers/r1/remove_router_interface",
		"GET /routers/r1",
		"DELETE /routers/r1",
		"DELETE /ports/port1",
		"DELETE /networks/n1",
	}, tc.recorded())
}

func TestClient_DeleteNetwork_Missing(t *testing.T) {
	t.Parallel()

	tc := newTestCloud(t)
	tc.network.handle("/networks/gone", tc.reply(http.StatusNotFound, `{"NeutronError":{"type":"NetworkNotFound"}}`))

	require.NoError(t, tc.gateway().DeleteNetwork(context.Background(), "gone"))
}

func TestClient_FloatingIPs(t *testing.T) {
	t.Parallel()

	tc := newTestCloud(t)
	var req map[string]map[string]any
	tc.network.handle("/floatingips", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&req)
		tc.reply(http.StatusCreated, `{"floatingip":{"id":"f1","floating_ip_address":"203.0.113.9"}}`)(w, r)
	})
	tc.network.handle("/floatingips/f1", tc.reply(http.StatusNoContent, ""))
	tc.network.handle("/floatingips/gone", tc.reply(http.StatusNotFound, `{"NeutronError":{}}`))

	gw := tc.gateway()
	ctx := context.Background()

	fip, err := gw.CreateFloatingIP(ctx, cloud.FloatingIPSpec{Name: "lambda-master-ipv4", ProjectID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, &cloud.FloatingIP{ID: "f1", Address: "203.0.113.9"}, fip)
	assert.Equal(t, "ext-net", req["floatingip"]["floating_network_id"])
	assert.Equal(t, "lambda-master-ipv4", req["floatingip"]["description"])

	require.NoError(t, gw.DeleteFloatingIP(ctx, "f1"))
	require.NoError(t, gw.DeleteFloatingIP(ctx, "gone"))
}

func TestClient_CreateFloatingIP_NoExternalNetwork(t *testing.T) {
	t.Parallel()

	tc := newTestCloud(t)
	_, err := tc.gateway(WithExternalNetwork("")).CreateFloatingIP(context.Background(), cloud.FloatingIPSpec{Name: "x"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "no external network"))
}

func TestMapServerStatus(t *testing.T) {
	t.Parallel()

	tests := map[string]cloud.VMStatus{
		"ACTIVE":       cloud.StatusActive,
		"BUILD":        cloud.StatusBuild,
		"HARD_REBOOT":  cloud.StatusBuild,
		"SHUTOFF":      cloud.StatusStopped,
		"ERROR":        cloud.StatusError,
		"SOFT_DELETED": cloud.StatusDeleted,
		"":             cloud.StatusUnknown,
	}
	for in, want := range tests {
		assert.Equal(t, want, mapServerStatus(in), in)
	}
}
