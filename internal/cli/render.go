package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"modelctl/internal/ports"
	"modelctl/pkg/types"
)

func renderStatus(w io.Writer, st types.StatusResponse, now time.Time) error {
	fmt.Fprintf(w, "Instance:      %s\n", st.InstanceID)
	fmt.Fprintf(w, "State:         %s\n", st.InstanceState)
	if st.ProviderError != "" {
		fmt.Fprintf(w, "Provider:      %s\n", st.ProviderError)
	}
	if st.PublicAddress != "" {
		fmt.Fprintf(w, "Address:       %s\n", st.PublicAddress)
	}
	switch {
	case st.RemotePortsError != "":
		fmt.Fprintf(w, "Remote ports:  unavailable (%s)\n", st.RemotePortsError)
	case st.InstanceState == types.InstanceRunning:
		fmt.Fprintf(w, "Remote ports:  %s\n", joinPorts(st.RemotePorts))
	}
	if len(st.Sessions) == 0 {
		fmt.Fprintln(w, "Sessions:      none")
		return nil
	}
	fmt.Fprintf(w, "Sessions:      %d\n", len(st.Sessions))
	t := tablewriter.NewWriter(w)
	t.Header("ID", "Model", "URL", "Uptime", "Process", "Listening")
	for _, s := range st.Sessions {
		started := now.Add(-time.Duration(s.UptimeSeconds) * time.Second)
		row := []string{
			s.ID,
			s.ModelName,
			s.URL,
			strings.TrimSpace(humanize.RelTime(started, now, "", "")),
			aliveLabel(s.ProcessAlive),
			listeningLabel(s.RemoteListening),
		}
		if err := t.Append(row); err != nil {
			return err
		}
	}
	return t.Render()
}

func renderModels(w io.Writer, models []types.ModelDescriptor) error {
	if len(models) == 0 {
		fmt.Fprintln(w, "No models configured")
		return nil
	}
	t := tablewriter.NewWriter(w)
	t.Header("ID", "Name", "Kind", "GPU layers", "Threads", "Path")
	for _, m := range models {
		row := []string{m.ID, m.Name, m.Kind(), strconv.Itoa(m.GPULayers), strconv.Itoa(m.Threads), m.Path}
		if err := t.Append(row); err != nil {
			return err
		}
	}
	return t.Render()
}

func renderDebug(w io.Writer, rep ports.DebugReport) error {
	fmt.Fprintf(w, "Local ports %d-%d:\n", ports.DebugFrom, ports.DebugTo)
	t := tablewriter.NewWriter(w)
	t.Header("Port", "State")
	for _, p := range rep.Local {
		state := "free"
		if p.Busy {
			state = "in use"
		}
		if err := t.Append([]string{strconv.Itoa(p.Port), state}); err != nil {
			return err
		}
	}
	if err := t.Render(); err != nil {
		return err
	}

	fmt.Fprintln(w, "Session ports:")
	if len(rep.Sessions) == 0 {
		fmt.Fprintln(w, "  none")
	}
	for _, id := range ports.SortedSessionIDs(rep.Sessions) {
		fmt.Fprintf(w, "  %s: %d\n", id, rep.Sessions[id])
	}

	if rep.RemoteError != "" {
		fmt.Fprintf(w, "Remote ports: unavailable (%s)\n", rep.RemoteError)
		return nil
	}
	fmt.Fprintf(w, "Remote ports on %s: %s\n", rep.RemoteHost, joinPorts(rep.RemotePorts))
	return nil
}

func renderKill(w io.Writer, res []ports.KillResult) error {
	t := tablewriter.NewWriter(w)
	t.Header("Port", "Result", "Output")
	for _, r := range res {
		result := "cleanup issued"
		if r.Err != nil {
			result = "failed: " + r.Err.Error()
		}
		if err := t.Append([]string{strconv.Itoa(r.Port), result, r.Output}); err != nil {
			return err
		}
	}
	return t.Render()
}

func joinPorts(ps []int) string {
	if len(ps) == 0 {
		return "none"
	}
	s := make([]string, len(ps))
	for i, p := range ps {
		s[i] = strconv.Itoa(p)
	}
	return strings.Join(s, ", ")
}

func aliveLabel(alive bool) string {
	if alive {
		return "running"
	}
	return "exited"
}

func listeningLabel(l *bool) string {
	switch {
	case l == nil:
		return "unknown"
	case *l:
		return "yes"
	default:
		return "no"
	}
}
