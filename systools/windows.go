package systools

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ruffel/proctree"
)

// cimScript lists parent links through CIM on hosts where wmic has been removed.
const cimScript = `Get-CimInstance Win32_Process | Select-Object ParentProcessId,ProcessId | ConvertTo-Csv -NoTypeInformation`

// currentElevatedScript checks the caller's own token for the Administrators role.
const currentElevatedScript = `$p = New-Object System.Security.Principal.WindowsPrincipal([System.Security.Principal.WindowsIdentity]::GetCurrent())
Write-Output $p.IsInRole([System.Security.Principal.WindowsBuiltInRole]::Administrator).ToString()`

// processElevatedScript reads TokenElevation (class 20) from another
// process's primary token. Any failure prints False.
const processElevatedScript = `try {
Add-Type -Namespace ProcTree -Name Token -MemberDefinition @'
[DllImport("kernel32.dll", SetLastError=true)] public static extern IntPtr OpenProcess(uint access, bool inherit, uint pid);
[DllImport("advapi32.dll", SetLastError=true)] public static extern bool OpenProcessToken(IntPtr process, uint access, out IntPtr token);
[DllImport("advapi32.dll", SetLastError=true)] public static extern bool GetTokenInformation(IntPtr token, int cls, out int info, int len, out int retLen);
[DllImport("kernel32.dll")] public static extern bool CloseHandle(IntPtr handle);
'@
$p = [ProcTree.Token]::OpenProcess(0x1000, $false, %d)
if ($p -eq [IntPtr]::Zero) { Write-Output 'False'; exit 0 }
$t = [IntPtr]::Zero
if (-not [ProcTree.Token]::OpenProcessToken($p, 0x8, [ref]$t)) { [void][ProcTree.Token]::CloseHandle($p); Write-Output 'False'; exit 0 }
$e = 0; $n = 0
$ok = [ProcTree.Token]::GetTokenInformation($t, 20, [ref]$e, 4, [ref]$n)
[void][ProcTree.Token]::CloseHandle($t); [void][ProcTree.Token]::CloseHandle($p)
if ($ok -and $e -ne 0) { Write-Output 'True' } else { Write-Output 'False' }
} catch { Write-Output 'False' }`

type windowsDialect struct{}

func (windowsDialect) snapshot(ctx context.Context, t *Tools) ([]entry, error) {
	var wmicErr error

	if _, err := t.env.LookPath(ctx, "wmic"); err == nil {
		res, err := t.run(ctx, proctree.NewCommand("wmic", "process", "get", "ProcessId,ParentProcessId", "/format:csv"))
		if err == nil {
			return parseProcessCSV(string(res.Stdout))
		}

		if errors.Is(err, proctree.ErrTimedOut) {
			return nil, err
		}

		wmicErr = err
	} else {
		wmicErr = err
	}

	t.log.WithError(wmicErr).Debug("wmic unavailable, using CIM")

	res, err := t.run(ctx, proctree.OSWindows.ShellCommand(cimScript))
	if err != nil {
		return nil, fmt.Errorf("wmic: %w; cim: %w", wmicErr, err)
	}

	return parseProcessCSV(string(res.Stdout))
}

func (windowsDialect) names(ctx context.Context, t *Tools) (map[proctree.PID]string, error) {
	res, err := t.run(ctx, proctree.NewCommand("tasklist", "/FO", "CSV", "/NH"))
	if err != nil {
		return nil, err
	}

	names := parseTasklist(string(res.Stdout))
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no tasklist records parsed", proctree.ErrSnapshotUnavailable)
	}

	return names, nil
}

func (windowsDialect) graceful(pid proctree.PID) *proctree.Command {
	return taskkill(pid, false)
}

func (windowsDialect) forced(pid proctree.PID) *proctree.Command {
	return taskkill(pid, true)
}

func taskkill(pid proctree.PID, force bool) *proctree.Command {
	return proctree.Cmd("taskkill").Flags(force, "/F").Args("/PID", pid.String()).Build()
}

func (windowsDialect) running(ctx context.Context, t *Tools, pid proctree.PID) (bool, error) {
	res, err := t.run(ctx, proctree.NewCommand("tasklist", "/FI", "PID eq "+pid.String(), "/FO", "CSV", "/NH"))
	if err != nil {
		return false, err
	}

	_, ok := parseTasklist(string(res.Stdout))[pid]

	return ok, nil
}

// exited is always false: Windows has no zombies, and a missing pid is
// reported by taskkill itself.
func (windowsDialect) exited(context.Context, *Tools, proctree.PID) bool {
	return false
}

func (windowsDialect) notFound(diag string) bool {
	return containsAny(diag, "not found", "No tasks")
}

func (windowsDialect) denied(diag string) bool {
	return containsAny(diag, "Access is denied")
}

func (windowsDialect) processElevated(ctx context.Context, t *Tools, pid proctree.PID) bool {
	res, err := t.run(ctx, proctree.OSWindows.ShellCommand(fmt.Sprintf(processElevatedScript, pid)))
	if err != nil {
		return false
	}

	return strings.EqualFold(strings.TrimSpace(string(res.Stdout)), "true")
}

func (windowsDialect) currentElevated(ctx context.Context, t *Tools) bool {
	res, err := t.run(ctx, proctree.OSWindows.ShellCommand(currentElevatedScript))
	if err != nil {
		return false
	}

	return strings.EqualFold(strings.TrimSpace(string(res.Stdout)), "true")
}

func newCSVReader(out string) *csv.Reader {
	r := csv.NewReader(strings.NewReader(strings.ReplaceAll(out, "\r", "")))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	return r
}

// parseProcessCSV reads wmic /format:csv or ConvertTo-Csv output. Columns are
// located by header name, since wmic orders them alphabetically and prefixes
// a Node column. Rows with a zero or unparsable pid are skipped.
func parseProcessCSV(out string) ([]entry, error) {
	r := newCSVReader(out)

	pidCol, ppidCol := -1, -1

	var entries []entry

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			continue
		}

		if pidCol < 0 {
			for i, h := range rec {
				switch {
				case strings.EqualFold(strings.TrimSpace(h), "ProcessId"):
					pidCol = i
				case strings.EqualFold(strings.TrimSpace(h), "ParentProcessId"):
					ppidCol = i
				}
			}

			if pidCol < 0 || ppidCol < 0 {
				pidCol, ppidCol = -1, -1
			}

			continue
		}

		if len(rec) <= pidCol || len(rec) <= ppidCol {
			continue
		}

		pid, err := proctree.ParsePID(rec[pidCol])
		if err != nil {
			continue
		}

		var ppid proctree.PID

		if p, err := proctree.ParsePID(rec[ppidCol]); err == nil {
			ppid = p
		}

		entries = append(entries, entry{pid: pid, ppid: ppid})
	}

	if pidCol < 0 {
		return nil, fmt.Errorf("%w: no ProcessId/ParentProcessId header", proctree.ErrSnapshotUnavailable)
	}

	return entries, nil
}

// parseTasklist reads `tasklist /FO CSV /NH` rows: "image","pid",... The
// "INFO: No tasks are running" notice has a single field and is skipped.
func parseTasklist(out string) map[proctree.PID]string {
	r := newCSVReader(out)
	names := map[proctree.PID]string{}

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil || len(rec) < 2 {
			continue
		}

		pid, err := proctree.ParsePID(rec[1])
		if err != nil {
			continue
		}

		names[pid] = strings.TrimSpace(rec[0])
	}

	return names
}
