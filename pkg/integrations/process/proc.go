package process

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"focusmru/pkg/focus"
)

// DefaultProcRoot is where the kernel mounts procfs
const DefaultProcRoot = "/proc"

type processInfo struct {
	pid     int32
	name    string
	cmdline string
	environ map[string]string
	exe     string
}

// readProcessInfo reads the fields of /proc/<pid> the resolver and the
// watcher need. It fails only when the process directory is gone.
func readProcessInfo(procRoot string, pid int32) (*processInfo, error) {
	dir := filepath.Join(procRoot, strconv.Itoa(int(pid)))
	info := &processInfo{pid: pid}

	statData, err := os.ReadFile(filepath.Join(dir, "stat"))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read stat for pid %d", pid)
	}
	info.name = parseStatName(string(statData))

	if comm, err := os.ReadFile(filepath.Join(dir, "comm")); err == nil {
		if name := strings.TrimSpace(string(comm)); name != "" {
			info.name = name
		}
	}

	if cmdData, err := os.ReadFile(filepath.Join(dir, "cmdline")); err == nil {
		info.cmdline = strings.TrimSpace(strings.ReplaceAll(string(cmdData), "\x00", " "))
	}

	if envData, err := os.ReadFile(filepath.Join(dir, "environ")); err == nil {
		info.environ = parseEnviron(envData)
	}

	if exe, err := os.Readlink(filepath.Join(dir, "exe")); err == nil {
		info.exe = strings.TrimSuffix(exe, " (deleted)")
	}

	return info, nil
}

// parseStatName extracts the command name between the first "(" and the
// last ")" of a stat line; the name itself may contain parentheses.
func parseStatName(stat string) string {
	start := strings.Index(stat, "(")
	end := strings.LastIndex(stat, ")")
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return stat[start+1 : end]
}

func parseEnviron(data []byte) map[string]string {
	env := make(map[string]string)
	for _, kv := range bytes.Split(data, []byte{0}) {
		if len(kv) == 0 {
			continue
		}
		key, value, ok := strings.Cut(string(kv), "=")
		if !ok {
			continue
		}
		env[key] = value
	}
	return env
}

// listPIDs returns every numeric entry of procRoot.
func listPIDs(procRoot string) ([]int32, error) {
	entries, err := os.ReadDir(procRoot)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list processes")
	}

	pids := make([]int32, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pid, err := strconv.ParseInt(entry.Name(), 10, 32)
		if err != nil || pid <= 0 {
			continue
		}
		pids = append(pids, int32(pid))
	}
	return pids, nil
}

func alive(procRoot string, pid int32) bool {
	_, err := os.Stat(filepath.Join(procRoot, strconv.Itoa(int(pid))))
	return err == nil
}

var shellBlacklist = []string{
	"bash", "zsh", "fish", "sh", "dash", "tcsh", "ksh",
	"goa-daemon", "goa-identity-service", "gvfs", "dbus-daemon", "systemd",
	"pulseaudio", "pipewire", "wireplumber", "bluetoothd",
	"ssh-agent", "gpg-agent", "dconf-service", "xdg-desktop-portal",
	"gnome-shell", "kwin_x11", "kwin_wayland", "Xorg", "Xwayland",
}

var commonGUIApps = []string{
	"firefox", "chrome", "chromium", "google-chrome", "brave", "opera", "vivaldi", "microsoft-edge",
	"code", "vscode", "sublime_text", "gedit", "emacs",
	"gnome-terminal", "konsole", "terminator", "alacritty", "kitty", "wezterm", "tilix",
	"slack", "discord", "telegram", "signal", "zoom", "teams",
	"libreoffice", "soffice.bin",
	"vlc", "mpv", "spotify", "rhythmbox", "totem",
	"nautilus", "dolphin", "thunar", "nemo", "caja",
	"idea", "pycharm", "webstorm", "eclipse",
}

// category classifies a process. Processes attached to a display or
// launched from a desktop entry are regular; well known daemons and shells
// are background.
func category(info *processInfo) focus.Category {
	for _, blocked := range shellBlacklist {
		if info.name == blocked || strings.HasPrefix(info.name, blocked+"-") {
			return focus.Background
		}
	}

	if desktopFile(info) != "" {
		// Children inherit the launcher environment; GLib records the pid
		// it actually launched.
		if launched := info.environ["GIO_LAUNCHED_DESKTOP_FILE_PID"]; launched != "" && launched != strconv.Itoa(int(info.pid)) {
			return focus.Accessory
		}
		return focus.Regular
	}

	for _, app := range commonGUIApps {
		if info.name == app {
			return focus.Regular
		}
	}

	if info.environ["DISPLAY"] != "" || info.environ["WAYLAND_DISPLAY"] != "" {
		// Helper processes inherit the display too; only their launcher
		// counts as an application.
		if strings.Contains(info.cmdline, "--type=") {
			return focus.Accessory
		}
		return focus.Regular
	}

	return focus.Background
}

// desktopFile returns the desktop entry path the process was launched
// from, as exported by GLib and BAMF launchers.
func desktopFile(info *processInfo) string {
	for _, key := range []string{"GIO_LAUNCHED_DESKTOP_FILE", "BAMF_DESKTOP_FILE_HINT"} {
		if path := info.environ[key]; path != "" {
			return path
		}
	}
	return ""
}

// desktopEntryName reads the Name key of the [Desktop Entry] group.
func desktopEntryName(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	inEntry := false
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "[") {
			inEntry = line == "[Desktop Entry]"
			continue
		}
		if !inEntry {
			continue
		}
		if value, ok := strings.CutPrefix(line, "Name="); ok {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
