//go:build darwin && cgo

package darwin

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework Cocoa

#include <Cocoa/Cocoa.h>
#include <stdlib.h>
#include <string.h>

extern void goFocusActivated(int pid, char *bundleID, char *name);
extern void goFocusTerminated(int pid);

typedef struct {
	int pid;
	int policy;
	char *bundleID;
	char *name;
} focusmruApp;

static id activateObserver = nil;
static id terminateObserver = nil;

static void focusmruUnsubscribe(void) {
	@autoreleasepool {
		NSNotificationCenter *center = [[NSWorkspace sharedWorkspace] notificationCenter];
		if (activateObserver != nil) {
			[center removeObserver:activateObserver];
			[activateObserver release];
			activateObserver = nil;
		}
		if (terminateObserver != nil) {
			[center removeObserver:terminateObserver];
			[terminateObserver release];
			terminateObserver = nil;
		}
	}
}

static int focusmruSubscribe(void) {
	@autoreleasepool {
		[NSApplication sharedApplication];
		NSNotificationCenter *center = [[NSWorkspace sharedWorkspace] notificationCenter];

		activateObserver = [[center addObserverForName:NSWorkspaceDidActivateApplicationNotification
		                                        object:nil
		                                         queue:nil
		                                    usingBlock:^(NSNotification *note) {
			NSRunningApplication *app = [note.userInfo objectForKey:NSWorkspaceApplicationKey];
			if (app == nil) {
				return;
			}
			goFocusActivated((int)[app processIdentifier],
			                 (char *)[[app bundleIdentifier] UTF8String],
			                 (char *)[[app localizedName] UTF8String]);
		}] retain];

		terminateObserver = [[center addObserverForName:NSWorkspaceDidTerminateApplicationNotification
		                                         object:nil
		                                          queue:nil
		                                     usingBlock:^(NSNotification *note) {
			NSRunningApplication *app = [note.userInfo objectForKey:NSWorkspaceApplicationKey];
			if (app == nil) {
				return;
			}
			goFocusTerminated((int)[app processIdentifier]);
		}] retain];

		if (activateObserver == nil || terminateObserver == nil) {
			focusmruUnsubscribe();
			return -1;
		}
		return 0;
	}
}

static char *focusmruCopy(NSString *s) {
	const char *utf8 = [s UTF8String];
	return utf8 != NULL ? strdup(utf8) : NULL;
}

static int focusmruRunningApps(focusmruApp **out, int *frontmost) {
	@autoreleasepool {
		NSWorkspace *ws = [NSWorkspace sharedWorkspace];
		NSArray *apps = [ws runningApplications];
		int n = (int)[apps count];

		focusmruApp *list = calloc(n > 0 ? n : 1, sizeof(focusmruApp));
		for (int i = 0; i < n; i++) {
			NSRunningApplication *app = [apps objectAtIndex:i];
			list[i].pid = (int)[app processIdentifier];
			list[i].policy = (int)[app activationPolicy];
			list[i].bundleID = focusmruCopy([app bundleIdentifier]);
			list[i].name = focusmruCopy([app localizedName]);
		}

		NSRunningApplication *front = [ws frontmostApplication];
		*frontmost = front != nil ? (int)[front processIdentifier] : -1;
		*out = list;
		return n;
	}
}

static void focusmruFreeApps(focusmruApp *list, int n) {
	for (int i = 0; i < n; i++) {
		free(list[i].bundleID);
		free(list[i].name);
	}
	free(list);
}

// Returns 1 when the run loop has no sources to wait on.
static int focusmruRunFor(double seconds) {
	@autoreleasepool {
		SInt32 result = CFRunLoopRunInMode(kCFRunLoopDefaultMode, seconds, false);
		return result == kCFRunLoopRunFinished ? 1 : 0;
	}
}
*/
import "C"

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"
	"unsafe"

	"github.com/pkg/errors"

	"focusmru/pkg/focus"
)

func init() {
	// NSWorkspace notifications are delivered on the main thread's run
	// loop, which RunMainLoop drives from the main goroutine.
	runtime.LockOSThread()
}

var (
	activeMu sync.Mutex
	active   *Source
)

// Source delivers NSWorkspace activation and termination notifications.
// Only one Source can be subscribed per process.
type Source struct {
	logger *slog.Logger

	mu         sync.Mutex
	sink       focus.Sink
	subscribed bool
	closed     bool
}

var (
	_ focus.EventSource  = (*Source)(nil)
	_ focus.Unsubscriber = (*Source)(nil)
)

// NewSource creates an NSWorkspace Source.
func NewSource(logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{logger: logger}
}

// IsAvailable reports whether NSWorkspace can be used.
func IsAvailable() bool {
	return true
}

// Subscribe implements focus.EventSource.
func (s *Source) Subscribe(sink focus.Sink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return focus.ErrClosed
	}
	if s.subscribed {
		return errors.New("darwin source already subscribed")
	}

	activeMu.Lock()
	defer activeMu.Unlock()
	if active != nil {
		return errors.New("another NSWorkspace source is subscribed")
	}

	if C.focusmruSubscribe() != 0 {
		return errors.New("failed to add NSWorkspace observers")
	}

	s.sink = sink
	s.subscribed = true
	active = s
	return nil
}

// Close implements focus.EventSource.
func (s *Source) Close() error {
	s.stop(true)
	return nil
}

// Unsubscribe implements focus.Unsubscriber.
func (s *Source) Unsubscribe() error {
	s.stop(false)
	return nil
}

func (s *Source) stop(final bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = final

	if s.subscribed {
		activeMu.Lock()
		if active == s {
			C.focusmruUnsubscribe()
			active = nil
		}
		activeMu.Unlock()
		s.subscribed = false
		s.sink = nil
	}
}

func activeSink() focus.Sink {
	activeMu.Lock()
	defer activeMu.Unlock()
	if active == nil {
		return nil
	}
	return active.sink
}

//export goFocusActivated
func goFocusActivated(pid C.int, bundleID, name *C.char) {
	sink := activeSink()
	if sink == nil {
		return
	}
	sink.Activated(focus.ActivationSignal{
		PID:         int32(pid),
		BundleID:    C.GoString(bundleID),
		Name:        C.GoString(name),
		HasMetadata: true,
	})
}

//export goFocusTerminated
func goFocusTerminated(pid C.int) {
	sink := activeSink()
	if sink == nil {
		return
	}
	sink.Terminated(focus.TerminationRecord{PID: int32(pid)})
}

// Workspace enumerates NSWorkspace running applications.
type Workspace struct{}

var _ focus.Workspace = Workspace{}

// NewWorkspace returns an NSWorkspace backed Workspace.
func NewWorkspace() Workspace {
	return Workspace{}
}

// Snapshot implements focus.Workspace.
func (Workspace) Snapshot() (*focus.Snapshot, error) {
	var list *C.focusmruApp
	var front C.int

	n := int(C.focusmruRunningApps(&list, &front))
	defer C.focusmruFreeApps(list, C.int(n))

	apps := make([]runningApp, 0, n)
	for _, app := range unsafe.Slice(list, n) {
		apps = append(apps, runningApp{
			pid:      int32(app.pid),
			policy:   int(app.policy),
			bundleID: C.GoString(app.bundleID),
			name:     C.GoString(app.name),
		})
	}

	return buildSnapshot(apps, int32(front)), nil
}

// RunMainLoop drives the main run loop until ctx is done. It must be called
// from the main goroutine.
func RunMainLoop(ctx context.Context) error {
	for ctx.Err() == nil {
		if C.focusmruRunFor(0.25) == 1 {
			select {
			case <-ctx.Done():
			case <-time.After(250 * time.Millisecond):
			}
		}
	}
	return nil
}
