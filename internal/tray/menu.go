package tray

import (
	"log/slog"
	"time"

	"macroreel/internal/library"
	"macroreel/internal/macro"
)

// Session is the part of the session coordinator the menu drives.
type Session interface {
	StartCapture() error
	StopCapture() ([]macro.InputEvent, error)
	StopPlayback()
	StartAutoClick(req macro.AutoClickRequest) error
	StopAutoClick() error
	Status() macro.Status
}

// Saver stores finished recordings.
type Saver interface {
	Save(name string, events []macro.InputEvent) (*library.Macro, error)
}

// Menu is the macroreel tray menu.
type Menu struct {
	tray      *Tray
	session   Session
	store     Saver
	autoClick func() macro.AutoClickRequest
	logger    *slog.Logger
	now       func() time.Time

	recordID int
	playID   int
	clickID  int
}

// NewMenu builds the menu items on t. autoClick supplies the request used by
// "Start autoclick"; onQuit runs when Quit is chosen.
func NewMenu(t *Tray, sess Session, store Saver, autoClick func() macro.AutoClickRequest, onQuit func(), logger *slog.Logger) *Menu {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Menu{
		tray:      t,
		session:   sess,
		store:     store,
		autoClick: autoClick,
		logger:    logger.With("component", "tray"),
		now:       time.Now,
	}

	m.recordID = t.AddMenuItem("Start recording", "Capture keyboard and mouse into a new macro", func() { m.ToggleRecording() })
	m.playID = t.AddMenuItem("Stop playback", "", m.StopPlayback)
	m.clickID = t.AddMenuItem("Start autoclick", "Click with the configured button and interval", func() { m.ToggleAutoClick() })
	t.AddSeparator()
	t.AddMenuItem("Quit", "", onQuit)

	m.Refresh()
	return m
}

// RecordingName names a recording saved from the tray.
func RecordingName(t time.Time) string {
	return "recording " + t.Format("2006-01-02 15:04:05")
}

// ToggleRecording starts capture, or stops it and saves the result. The
// saved macro is returned when a recording was stored.
func (m *Menu) ToggleRecording() (*library.Macro, error) {
	defer m.Refresh()

	if !m.session.Status().Capturing {
		if err := m.session.StartCapture(); err != nil {
			m.logger.Warn("start recording", "error", err)
			return nil, err
		}
		return nil, nil
	}

	events, err := m.session.StopCapture()
	if err != nil {
		m.logger.Warn("stop recording", "error", err)
		return nil, err
	}
	if len(events) == 0 {
		m.logger.Info("recording was empty, nothing saved")
		return nil, nil
	}
	saved, err := m.store.Save(RecordingName(m.now()), events)
	if err != nil {
		m.logger.Error("save recording", "error", err)
		return nil, err
	}
	m.logger.Info("recording saved", "id", saved.ID, "name", saved.Name, "events", saved.EventCount)
	return saved, nil
}

// StopPlayback stops any playback in progress.
func (m *Menu) StopPlayback() {
	m.session.StopPlayback()
	m.Refresh()
}

// ToggleAutoClick starts or stops the autoclicker.
func (m *Menu) ToggleAutoClick() error {
	defer m.Refresh()

	var err error
	if m.session.Status().AutoClicking {
		err = m.session.StopAutoClick()
	} else {
		err = m.session.StartAutoClick(m.autoClick())
	}
	if err != nil {
		m.logger.Warn("toggle autoclick", "error", err)
	}
	return err
}

// Refresh updates titles and enabled state from the session status.
func (m *Menu) Refresh() {
	st := m.session.Status()
	if st.Capturing {
		m.tray.SetItemTitle(m.recordID, "Stop recording")
	} else {
		m.tray.SetItemTitle(m.recordID, "Start recording")
	}
	m.tray.SetItemEnabled(m.playID, st.Playing)
	if st.AutoClicking {
		m.tray.SetItemTitle(m.clickID, "Stop autoclick")
	} else {
		m.tray.SetItemTitle(m.clickID, "Start autoclick")
	}
}
