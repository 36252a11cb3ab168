package handlers

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"

	"github.com/imamik/lambda-provisioner/internal/instance"
	"github.com/imamik/lambda-provisioner/internal/platform/cloud"
	"github.com/imamik/lambda-provisioner/internal/provisioning"
	"github.com/imamik/lambda-provisioner/internal/provisioning/quota"
)

var (
	colorGreen = lipgloss.Color("#22c55e")
	colorRed   = lipgloss.Color("#ef4444")
	colorBlue  = lipgloss.Color("#3b82f6")
	colorDim   = lipgloss.Color("#6b7280")
	colorWhite = lipgloss.Color("#f9fafb")
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorWhite)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorBlue).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	dimStyle    = lipgloss.NewStyle().Foreground(colorDim)
	okStyle     = lipgloss.NewStyle().Foreground(colorGreen)
	failStyle   = lipgloss.NewStyle().Foreground(colorRed)
)

// styled decides between boxed tables and tab separated lines for pipes.
var styled = isInteractiveTTY

func isInteractiveTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// renderTable renders rows under headers. Outside a terminal it emits one
// tab separated line per row so the output stays scriptable.
func renderTable(headers []string, rows [][]string) string {
	if !styled() {
		var b strings.Builder
		b.WriteString(strings.Join(headers, "\t") + "\n")
		for _, r := range rows {
			b.WriteString(strings.Join(r, "\t") + "\n")
		}
		return b.String()
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.String() + "\n"
}

func title(s string) string {
	if !styled() {
		return s + "\n"
	}
	return "\n" + titleStyle.Render("  "+s) + "\n"
}

func verdict(ok bool) string {
	text := "ok"
	style := okStyle
	if !ok {
		text = "exceeded"
		style = failStyle
	}
	if !styled() {
		return text
	}
	return style.Render(text)
}

func number(v int64, unlimited bool) string {
	if unlimited {
		return "unlimited"
	}
	return strconv.FormatInt(v, 10)
}

// renderQuota renders the quota report of a project against a request.
func renderQuota(project *cloud.Project, lines []quota.Line) string {
	rows := make([][]string, 0, len(lines))
	for _, l := range lines {
		name := string(l.Dimension)
		if u := l.Dimension.Unit(); u != "" {
			name += " (" + u + ")"
		}
		rows = append(rows, []string{
			name,
			number(l.Limit, l.Unlimited),
			strconv.FormatInt(l.Usage, 10),
			strconv.FormatInt(l.Pending, 10),
			number(l.Available, l.Unlimited),
			strconv.FormatInt(l.Requested, 10),
			verdict(l.OK()),
		})
	}
	return title(fmt.Sprintf("Quota of project %s (%s)", project.Name, project.ID)) +
		renderTable([]string{"DIMENSION", "LIMIT", "USAGE", "PENDING", "AVAILABLE", "REQUESTED", "STATUS"}, rows)
}

func renderFlavors(flavors []cloud.Flavor) string {
	rows := make([][]string, 0, len(flavors))
	for _, f := range flavors {
		rows = append(rows, []string{
			f.ID, f.Name,
			strconv.Itoa(f.VCPUs), strconv.Itoa(f.RAM), strconv.Itoa(f.Disk),
			strconv.FormatBool(f.AllowCreate),
		})
	}
	return renderTable([]string{"ID", "NAME", "VCPUS", "RAM (MiB)", "DISK (GB)", "ALLOW CREATE"}, rows)
}

func renderImages(images []cloud.Image) string {
	rows := make([][]string, 0, len(images))
	for _, img := range images {
		rows = append(rows, []string{img.ID, img.Name, img.Status})
	}
	return renderTable([]string{"ID", "NAME", "STATUS"}, rows)
}

// renderInstance summarizes an instance record and its nodes.
func renderInstance(inst *instance.Instance, keyLocation string) string {
	var b strings.Builder
	b.WriteString(title(fmt.Sprintf("Cluster %s: %s", inst.ID, inst.Status)))
	if inst.Message != "" {
		b.WriteString("  " + inst.Message + "\n")
	}
	desc := inst.Descriptor
	if desc == nil {
		return b.String()
	}

	fmt.Fprintf(&b, "  network %s, subnet %s\n", desc.NetworkID, desc.Subnet.CIDR)
	if keyLocation != "" {
		fmt.Fprintf(&b, "  private key %s\n", keyLocation)
	}
	rows := [][]string{nodeRow(desc.Master)}
	for _, n := range desc.Slaves {
		rows = append(rows, nodeRow(n))
	}
	b.WriteString(renderTable([]string{"ROLE", "NAME", "ID", "INTERNAL IP", "PUBLIC IP"}, rows))
	return b.String()
}

func nodeRow(n provisioning.Node) []string {
	public := n.PublicAddress()
	if public == "" {
		public = "-"
	}
	internal := n.InternalIP
	if internal == "" {
		internal = "-"
	}
	return []string{string(n.Role), n.Name, n.ID, internal, public}
}
