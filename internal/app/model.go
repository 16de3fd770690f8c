package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/calldeck/calldeck/internal/api"
	"github.com/calldeck/calldeck/internal/bridge"
	"github.com/calldeck/calldeck/internal/history"
	"github.com/calldeck/calldeck/internal/room"
	"github.com/calldeck/calldeck/internal/state"
	"github.com/calldeck/calldeck/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
)

// Phase tracks which screen the dashboard shows.
type Phase int

const (
	PhaseForm Phase = iota
	PhaseLive
)

// PanelFocus tracks which live panel has keyboard focus.
type PanelFocus int

const (
	FocusTranscript PanelFocus = iota
	FocusTimeline
)

// Form field indexes.
const (
	fieldDisplayName = iota
	fieldPhoneNumber
	fieldRoomName
	fieldCount
)

const connectTimeout = 20 * time.Second

// Model is the root bubbletea model for the calldeck TUI.
type Model struct {
	store  *state.Store
	client *api.Client
	hist   *history.Store
	log    *logrus.Logger

	// storeCh coalesces store-change notifications into Update.
	storeCh chan struct{}

	phase   Phase
	joining bool

	// Connect form
	inputs     [fieldCount]textinput.Model
	focusIndex int

	// Active call plumbing
	membership *room.Room
	attachment *bridge.Attachment
	historyID  int64

	// Config
	defaultTimezone string

	// History overlay
	showHistory  bool
	historyCalls []history.Call

	// UI state
	focusedPanel     PanelFocus
	width            int
	height           int
	transcriptScroll int
	transcriptLive   bool

	errorMessage string
	statusText   string
}

// New creates the root model. hist may be nil when the local call log is
// unavailable.
func New(store *state.Store, client *api.Client, hist *history.Store, log *logrus.Logger) Model {
	m := Model{
		store:          store,
		client:         client,
		hist:           hist,
		log:            log,
		storeCh:        make(chan struct{}, 1),
		transcriptLive: true,
		statusText:     "Fill in caller details to connect",
	}

	name := textinput.New()
	name.Placeholder = "Operator name"
	name.CharLimit = 64
	name.Focus()
	m.inputs[fieldDisplayName] = name

	phone := textinput.New()
	phone.Placeholder = "+15555550123"
	phone.CharLimit = 20
	m.inputs[fieldPhoneNumber] = phone

	roomName := textinput.New()
	roomName.Placeholder = "room override (optional)"
	roomName.CharLimit = 64
	m.inputs[fieldRoomName] = roomName

	// Coalescing pump: the listener runs inside every store mutation; a full
	// channel means a redraw is already pending.
	store.Subscribe(func() {
		select {
		case m.storeCh <- struct{}{}:
		default:
		}
	})

	return m
}

// Init fetches config and starts the store pump.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		loadConfigCmd(m.client),
		waitForStoreCmd(m.storeCh),
		textinput.Blink,
	)
}

// waitForStoreCmd blocks until the store mutates, then wakes Update.
func waitForStoreCmd(ch chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return StoreChangedMsg{}
	}
}

// loadConfigCmd fetches /api/config once at startup.
func loadConfigCmd(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		cfg, err := client.GetConfig(ctx)
		if err != nil {
			return ConfigErrorMsg{Err: err}
		}
		return ConfigLoadedMsg{Config: cfg}
	}
}

// createSessionCmd requests a session credential.
func createSessionCmd(client *api.Client, req api.SessionRequest) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		sess, err := client.CreateSession(ctx, req)
		if err != nil {
			return SessionErrorMsg{Err: err}
		}
		return SessionCreatedMsg{
			Session:     sess,
			PhoneNumber: req.PhoneNumber,
			DisplayName: req.DisplayName,
		}
	}
}

// joinRoomCmd joins the realtime room's events channel.
func joinRoomCmd(endpoint, token, identity string, log *logrus.Logger) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		r, err := room.Join(ctx, endpoint, token, identity, log)
		if err != nil {
			return RoomJoinErrorMsg{Err: err}
		}
		return RoomJoinedMsg{Room: r}
	}
}

// watchRoomCmd waits for the room's event stream to end.
func watchRoomCmd(r *room.Room) tea.Cmd {
	return func() tea.Msg {
		<-r.Done()
		return RoomClosedMsg{Err: r.Err()}
	}
}

// fetchSummariesCmd fetches recent summaries for the caller.
func fetchSummariesCmd(client *api.Client, phone string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		records, err := client.ListSummaries(ctx, phone, api.DefaultSummaryLimit)
		if err != nil {
			return SummaryErrorMsg{Err: err}
		}
		return SummariesMsg{Records: records}
	}
}

// recordStartCmd writes the call-log row for a freshly connected call.
func recordStartCmd(hist *history.Store, call history.Call, log *logrus.Logger) tea.Cmd {
	return func() tea.Msg {
		id, err := hist.RecordStart(call)
		if err != nil {
			log.WithError(err).Warn("call log insert failed")
			return nil
		}
		return historyStartedMsg{id: id}
	}
}

// recordEndCmd closes out the call-log row. Fire and forget.
func recordEndCmd(hist *history.Store, id int64, summaryText string, log *logrus.Logger) tea.Cmd {
	return func() tea.Msg {
		if err := hist.RecordEnd(id, time.Now(), summaryText); err != nil {
			log.WithError(err).Warn("call log update failed")
		}
		return nil
	}
}

// loadHistoryCmd reads recent calls for the history overlay.
func loadHistoryCmd(hist *history.Store, log *logrus.Logger) tea.Cmd {
	return func() tea.Msg {
		calls, err := hist.Recent(10)
		if err != nil {
			log.WithError(err).Warn("call log read failed")
			return HistoryLoadedMsg{}
		}
		return HistoryLoadedMsg{Calls: calls}
	}
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case StoreChangedMsg:
		if m.transcriptLive {
			m.scrollToBottom()
		}
		return m, waitForStoreCmd(m.storeCh)

	case ConfigLoadedMsg:
		m.store.SetEndpoint(msg.Config.LiveKitURL)
		m.defaultTimezone = msg.Config.DefaultTimezone
		m.statusText = "Fill in caller details to connect"
		return m, nil

	case ConfigErrorMsg:
		// Silent by design: the endpoint stays unset and the session
		// response may still supply one.
		m.log.WithError(msg.Err).Warn("config fetch failed")
		return m, nil

	case SessionCreatedMsg:
		return m.handleSessionCreated(msg)

	case SessionErrorMsg:
		m.store.ClearSession()
		m.errorMessage = msg.Err.Error()
		m.statusText = "Connect failed"
		return m, nil

	case RoomJoinedMsg:
		m.joining = false
		m.membership = msg.Room
		m.attachment = bridge.Attach(msg.Room, m.store, m.log)
		m.phase = PhaseLive
		m.statusText = "Live"
		m.errorMessage = ""

		snap := m.store.Snapshot()
		cmds := []tea.Cmd{
			watchRoomCmd(msg.Room),
			fetchSummariesCmd(m.client, snap.Session.CallerPhone),
		}
		if m.hist != nil {
			cmds = append(cmds, recordStartCmd(m.hist, history.Call{
				RoomName:    snap.Session.RoomName,
				Identity:    snap.Session.Identity,
				CallerPhone: snap.Session.CallerPhone,
				DisplayName: m.inputs[fieldDisplayName].Value(),
				StartedAt:   time.Now(),
			}, m.log))
		}
		return m, tea.Batch(cmds...)

	case RoomJoinErrorMsg:
		m.joining = false
		m.store.ClearSession()
		m.errorMessage = msg.Err.Error()
		m.statusText = "Connect failed"
		return m, nil

	case RoomClosedMsg:
		if m.phase != PhaseLive {
			return m, nil
		}
		cmd := m.teardown()
		if msg.Err != nil {
			m.errorMessage = "connection lost: " + msg.Err.Error()
		}
		m.statusText = "Disconnected"
		return m, cmd

	case SummariesMsg:
		if len(msg.Records) > 0 {
			rec := msg.Records[0]
			m.store.SetSummary(&rec)
		} else {
			m.store.SetSummary(nil)
		}
		return m, nil

	case SummaryErrorMsg:
		m.log.WithError(msg.Err).Warn("summary fetch failed")
		return m, nil

	case historyStartedMsg:
		m.historyID = msg.id
		return m, nil

	case HistoryLoadedMsg:
		m.historyCalls = msg.Calls
		return m, nil
	}

	// Text input updates while the form is showing.
	if m.phase == PhaseForm {
		return m.updateInputs(msg)
	}

	return m, nil
}

// handleSessionCreated populates the store and moves on to the room join.
func (m Model) handleSessionCreated(msg SessionCreatedMsg) (tea.Model, tea.Cmd) {
	endpoint := msg.Session.LiveKitURL
	if endpoint == "" {
		endpoint = m.store.Snapshot().Endpoint
	}
	if endpoint == "" {
		m.store.ClearSession()
		m.errorMessage = "realtime endpoint unknown; backend config unavailable"
		m.statusText = "Connect failed"
		return m, nil
	}

	m.store.SetSession(state.Session{
		ConnectionURL: endpoint,
		Token:         msg.Session.Token,
		Identity:      msg.Session.Identity,
		RoomName:      msg.Session.RoomName,
		CallerPhone:   msg.PhoneNumber,
	})

	m.joining = true
	m.statusText = "Joining room " + msg.Session.RoomName
	return m, joinRoomCmd(endpoint, msg.Session.Token, msg.Session.Identity, m.log)
}

// teardown detaches the bridge before the store is cleared, so a straggler
// event from the torn-down room can never write into the next session's logs.
func (m *Model) teardown() tea.Cmd {
	var cmd tea.Cmd

	if m.attachment != nil {
		m.attachment.Detach()
		m.attachment = nil
	}
	if m.membership != nil {
		m.membership.Close()
		m.membership = nil
	}
	if m.hist != nil && m.historyID != 0 {
		summaryText := ""
		if snap := m.store.Snapshot(); snap.Summary != nil {
			summaryText = snap.Summary.SummaryText
		}
		cmd = recordEndCmd(m.hist, m.historyID, summaryText, m.log)
		m.historyID = 0
	}

	m.store.ClearSession()
	m.phase = PhaseForm
	m.joining = false
	return cmd
}

// submitForm validates the connect form and kicks off session issuance.
func (m Model) submitForm() (tea.Model, tea.Cmd) {
	name := strings.TrimSpace(m.inputs[fieldDisplayName].Value())
	phone := strings.TrimSpace(m.inputs[fieldPhoneNumber].Value())
	roomName := strings.TrimSpace(m.inputs[fieldRoomName].Value())

	if name == "" {
		m.errorMessage = "display name is required"
		return m, nil
	}
	if !validPhone(phone) {
		m.errorMessage = "phone number must be dialable, e.g. +15555550123"
		return m, nil
	}

	m.errorMessage = ""
	m.statusText = "Requesting session..."
	m.store.BeginConnecting()

	return m, createSessionCmd(m.client, api.SessionRequest{
		DisplayName: name,
		PhoneNumber: phone,
		RoomName:    roomName,
	})
}

// validPhone accepts an optional leading + followed by at least seven digits,
// ignoring common separators.
func validPhone(phone string) bool {
	if phone == "" {
		return false
	}
	digits := 0
	for i, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return false
		}
	}
	return digits >= 7
}

// updateInputs forwards a message to the focused form input.
func (m Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.inputs[m.focusIndex], cmd = m.inputs[m.focusIndex].Update(msg)
	return m, cmd
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.showHistory {
		switch key {
		case KeyEsc, KeyHistory, KeyQuit:
			m.showHistory = false
		case KeyCtrlC:
			return m, tea.Quit
		}
		return m, nil
	}

	switch key {
	case KeyCtrlC:
		cmd := tea.Quit
		if m.phase == PhaseLive {
			end := m.teardown()
			cmd = tea.Sequence(end, tea.Quit)
		}
		return m, cmd
	}

	if m.phase == PhaseForm {
		return m.handleFormKey(msg)
	}
	return m.handleLiveKey(key)
}

// handleFormKey drives the connect form.
func (m Model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	snap := m.store.Snapshot()

	switch msg.String() {
	case KeyEnter:
		if snap.Connecting || m.joining {
			return m, nil
		}
		if m.focusIndex < fieldCount-1 {
			return m.focusField(m.focusIndex + 1)
		}
		return m.submitForm()

	case KeyTab, KeyDown:
		return m.focusField((m.focusIndex + 1) % fieldCount)

	case KeyShiftTab, KeyUp:
		return m.focusField((m.focusIndex + fieldCount - 1) % fieldCount)
	}

	return m.updateInputs(msg)
}

// focusField moves form focus.
func (m Model) focusField(idx int) (tea.Model, tea.Cmd) {
	m.inputs[m.focusIndex].Blur()
	m.focusIndex = idx
	cmd := m.inputs[m.focusIndex].Focus()
	return m, cmd
}

// handleLiveKey drives the live dashboard.
func (m Model) handleLiveKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case KeyQuit, KeyQuitUpper:
		end := m.teardown()
		return m, tea.Sequence(end, tea.Quit)

	case KeyDisconnect:
		cmd := m.teardown()
		m.statusText = "Disconnected"
		return m, cmd

	case KeyRefresh:
		snap := m.store.Snapshot()
		return m, fetchSummariesCmd(m.client, snap.Session.CallerPhone)

	case KeyHistory:
		if m.hist != nil {
			m.showHistory = true
			return m, loadHistoryCmd(m.hist, m.log)
		}
		return m, nil

	case KeyTab:
		if m.focusedPanel == FocusTranscript {
			m.focusedPanel = FocusTimeline
		} else {
			m.focusedPanel = FocusTranscript
		}
		return m, nil

	case KeyUp:
		if m.focusedPanel == FocusTranscript {
			m.transcriptLive = false
			if m.transcriptScroll > 0 {
				m.transcriptScroll--
			}
		}
		return m, nil

	case KeyDown:
		if m.focusedPanel == FocusTranscript {
			maxScroll := m.maxTranscriptScroll()
			m.transcriptScroll++
			if m.transcriptScroll >= maxScroll {
				m.transcriptScroll = maxScroll
				m.transcriptLive = true
			}
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) scrollToBottom() {
	m.transcriptScroll = m.maxTranscriptScroll()
}

func (m Model) maxTranscriptScroll() int {
	totalLines := len(m.store.Snapshot().Transcript)
	visible := m.contentHeight()
	if totalLines <= visible {
		return 0
	}
	return totalLines - visible
}

func (m Model) contentHeight() int {
	if m.height == 0 {
		return 20
	}
	// Reserve: header(1) + status(1) + dividers(2) + summary(4) + error(1) + footer(1)
	reserved := 10
	if m.height-reserved < 5 {
		return 5
	}
	return m.height - reserved
}

func (m Model) timelinePanelWidth() int {
	if m.width == 0 {
		return 34
	}
	w := m.width * 38 / 100
	if w < 24 {
		w = 24
	}
	return w
}

func (m Model) transcriptPanelWidth() int {
	if m.width == 0 {
		return 60
	}
	w := m.width - m.timelinePanelWidth() - 1
	if w < 30 {
		w = 30
	}
	return w
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	if m.showHistory {
		return m.renderHistory()
	}

	snap := m.store.Snapshot()

	var sections []string
	sections = append(sections, m.renderHeader(snap))
	sections = append(sections, m.renderStatusBar(snap))
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))

	if m.phase == PhaseForm {
		sections = append(sections, m.renderForm(snap))
	} else {
		sections = append(sections, m.renderLive(snap))
		sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))
		sections = append(sections, m.renderSummary(snap))
	}

	if m.errorMessage != "" {
		sections = append(sections, ui.ErrorStyle.Render("Error: ")+ui.ErrorTextStyle.Render(m.errorMessage))
	}
	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) renderHeader(snap state.Snapshot) string {
	title := ui.TitleStyle.Render("CALLDECK")
	var roomInfo string
	if snap.Session.RoomName != "" {
		roomInfo = ui.DimStyle.Render(" — " + snap.Session.RoomName)
	}
	var tz string
	if m.defaultTimezone != "" {
		tz = ui.DimStyle.Render("  [" + m.defaultTimezone + "]")
	}
	return title + roomInfo + tz
}

func (m Model) renderStatusBar(snap state.Snapshot) string {
	var dot string
	switch {
	case snap.Connected():
		dot = ui.ConnectedDotStyle.Render("● CONNECTED")
	case snap.Connecting || m.joining:
		dot = ui.ConnectingDotStyle.Render("◐ CONNECTING")
	default:
		dot = ui.IdleDotStyle.Render("○ IDLE")
	}
	return dot + "  " + ui.DimStyle.Render(m.statusText)
}

func (m Model) renderForm(snap state.Snapshot) string {
	labels := [fieldCount]string{"Name ", "Phone", "Room "}

	var lines []string
	lines = append(lines, "")
	lines = append(lines, "  "+ui.PanelTitleStyle.Render("CONNECT TO CALL"))
	lines = append(lines, "")
	for i := 0; i < fieldCount; i++ {
		marker := "  "
		if i == m.focusIndex {
			marker = ui.SelectedStyle.Render("> ")
		}
		lines = append(lines, "  "+marker+ui.LabelStyle.Render(labels[i])+" "+m.inputs[i].View())
	}
	lines = append(lines, "")
	if snap.Connecting || m.joining {
		lines = append(lines, "  "+ui.ConnectingDotStyle.Render("Connecting..."))
	} else {
		lines = append(lines, "  "+ui.DimStyle.Render("Enter to connect, Tab to switch fields"))
	}

	// Pad to content height
	for len(lines) < m.contentHeight()+5 {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderLive(snap state.Snapshot) string {
	transcriptW := m.transcriptPanelWidth()
	timelineW := m.timelinePanelWidth()
	contentH := m.contentHeight()

	transcriptPanel := m.renderTranscriptPanel(snap, transcriptW, contentH)
	timelinePanel := m.renderTimelinePanel(snap, timelineW, contentH)

	divider := ui.DividerStyle.Render("│")

	transcriptLines := strings.Split(transcriptPanel, "\n")
	timelineLines := strings.Split(timelinePanel, "\n")

	var rows []string
	for i := 0; i < contentH; i++ {
		var left, right string
		if i < len(transcriptLines) {
			left = transcriptLines[i]
		}
		if i < len(timelineLines) {
			right = timelineLines[i]
		}
		rows = append(rows, padRight(left, transcriptW)+divider+right)
	}
	return strings.Join(rows, "\n")
}

func (m Model) renderTranscriptPanel(snap state.Snapshot, width, height int) string {
	var badge string
	if m.transcriptLive {
		badge = ui.LiveBadgeStyle.Render(" LIVE")
	} else {
		badge = ui.ScrollBadgeStyle.Render(" SCROLL")
	}

	var header string
	if m.focusedPanel == FocusTranscript {
		header = ui.PanelTitleActiveStyle.Render("TRANSCRIPT") + badge
	} else {
		header = ui.PanelTitleStyle.Render("TRANSCRIPT") + badge
	}

	var lines []string
	lines = append(lines, header)

	contentHeight := height - 1

	if len(snap.Transcript) == 0 {
		lines = append(lines, "")
		lines = append(lines, ui.DimStyle.Render("  Waiting for the conversation..."))
	} else {
		// Prefix: "  [HH:MM:SS] [ASSISTANT] " — wrap the rest.
		prefixWidth := 24
		textWidth := width - prefixWidth - 2
		if textWidth < 10 {
			textWidth = 10
		}
		indentStr := strings.Repeat(" ", prefixWidth)

		var displayLines []string
		for _, e := range snap.Transcript {
			ts := ui.TimestampStyle.Render(formatClock(e.Timestamp))
			wrapped := wrapText(e.Text, textWidth)
			displayLines = append(displayLines, ts+" "+speakerLabel(e.Speaker)+" "+wrapped[0])
			for _, wl := range wrapped[1:] {
				displayLines = append(displayLines, indentStr+wl)
			}
		}

		start := 0
		if m.transcriptLive {
			if len(displayLines) > contentHeight {
				start = len(displayLines) - contentHeight
			}
		} else {
			start = m.transcriptScroll
		}
		if start < 0 {
			start = 0
		}
		end := start + contentHeight
		if end > len(displayLines) {
			end = len(displayLines)
		}
		for i := start; i < end; i++ {
			lines = append(lines, "  "+displayLines[i])
		}
	}

	for len(lines) < height {
		lines = append(lines, "")
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderTimelinePanel(snap state.Snapshot, width, height int) string {
	var header string
	title := fmt.Sprintf("TOOLS (%d)", len(snap.ToolEvents))
	if m.focusedPanel == FocusTimeline {
		header = ui.PanelTitleActiveStyle.Render(title)
	} else {
		header = ui.PanelTitleStyle.Render(title)
	}

	var lines []string
	lines = append(lines, header)

	if len(snap.ToolEvents) == 0 {
		lines = append(lines, ui.DimStyle.Render("  No tool calls yet"))
	} else {
		for _, ev := range snap.ToolEvents {
			mark := ui.DimStyle.Render("…")
			if ev.Output != nil {
				mark = ui.ToolDoneStyle.Render("✓")
			}
			ts := ui.TimestampStyle.Render(formatClock(ev.Timestamp))
			name := ev.Name
			if name == "" {
				name = "(unnamed)"
			}
			lines = append(lines, truncateToWidth("  "+ts+" "+mark+" "+ui.ToolNameStyle.Render(name), width))
			if args := formatArguments(ev.Arguments); args != "" {
				lines = append(lines, truncateToWidth("      "+ui.DimStyle.Render(args), width))
			}
		}
	}

	// Keep the newest events visible.
	if len(lines) > height {
		lines = append(lines[:1], lines[len(lines)-height+1:]...)
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderSummary(snap state.Snapshot) string {
	var lines []string
	lines = append(lines, ui.PanelTitleStyle.Render("LAST SUMMARY")+ui.DimStyle.Render("  (r to refresh)"))

	if snap.Summary == nil {
		lines = append(lines, ui.DimStyle.Render("  No summary on file for this caller"))
	} else {
		text := snap.Summary.SummaryText
		if text == "" {
			text = "(empty summary)"
		}
		for i, wl := range wrapText(text, m.width-4) {
			if i >= 2 {
				lines = append(lines, ui.DimStyle.Render("  ..."))
				break
			}
			lines = append(lines, "  "+wl)
		}
		if len(snap.Summary.ActionItems) > 0 {
			items := strings.Join(snap.Summary.ActionItems, "; ")
			lines = append(lines, truncateToWidth("  "+ui.LabelStyle.Render("Action items: ")+items, m.width))
		}
	}

	for len(lines) < 3 {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderHistory() string {
	var lines []string
	lines = append(lines, ui.TitleStyle.Render("RECENT CALLS"))
	lines = append(lines, "")

	if len(m.historyCalls) == 0 {
		lines = append(lines, ui.DimStyle.Render("  No calls recorded yet"))
	} else {
		for _, c := range m.historyCalls {
			when := c.StartedAt.Format("2006-01-02 15:04")
			dur := ui.DimStyle.Render("(ongoing)")
			if c.EndedAt != nil {
				dur = ui.DimStyle.Render(c.EndedAt.Sub(c.StartedAt).Round(time.Second).String())
			}
			lines = append(lines, fmt.Sprintf("  %s  %s  %s  %s",
				ui.TimestampStyle.Render(when), c.CallerPhone, c.RoomName, dur))
			if c.SummaryText != "" {
				lines = append(lines, truncateToWidth("      "+ui.DimStyle.Render(c.SummaryText), m.width))
			}
		}
	}

	lines = append(lines, "")
	lines = append(lines, ui.FooterKeyStyle.Render("esc")+ui.FooterDescStyle.Render(" Back"))
	return strings.Join(lines, "\n")
}

func (m Model) renderFooter() string {
	var parts []string

	if m.phase == PhaseLive {
		parts = append(parts, ui.FooterKeyStyle.Render("d")+ui.FooterDescStyle.Render(" Disconnect"))
		parts = append(parts, ui.FooterKeyStyle.Render("r")+ui.FooterDescStyle.Render(" Refresh summary"))
		parts = append(parts, ui.FooterKeyStyle.Render("Tab")+ui.FooterDescStyle.Render(" Focus"))
		parts = append(parts, ui.FooterKeyStyle.Render("↑↓")+ui.FooterDescStyle.Render(" Scroll"))
		if m.hist != nil {
			parts = append(parts, ui.FooterKeyStyle.Render("h")+ui.FooterDescStyle.Render(" History"))
		}
		parts = append(parts, ui.FooterKeyStyle.Render("q")+ui.FooterDescStyle.Render(" Quit"))
	} else {
		parts = append(parts, ui.FooterKeyStyle.Render("Enter")+ui.FooterDescStyle.Render(" Connect"))
		parts = append(parts, ui.FooterKeyStyle.Render("Tab")+ui.FooterDescStyle.Render(" Next field"))
		parts = append(parts, ui.FooterKeyStyle.Render("ctrl+c")+ui.FooterDescStyle.Render(" Quit"))
	}

	return strings.Join(parts, "  ")
}

// Helpers

func speakerLabel(s state.Speaker) string {
	switch s {
	case state.SpeakerUser:
		return ui.UserLabelStyle.Render("[USER]     ")
	case state.SpeakerSystem:
		return ui.SystemLabelStyle.Render("[SYSTEM]   ")
	default:
		return ui.AssistantLabelStyle.Render("[ASSISTANT]")
	}
}

func formatClock(ts float64) string {
	sec := int64(ts)
	return time.Unix(sec, 0).Format("[15:04:05]")
}

// formatArguments renders a compact k=v listing of tool arguments.
func formatArguments(args map[string]any) string {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, 0, len(args))
	for k, v := range args {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	// Map iteration order is unstable; sort for a steady render.
	sort.Strings(parts)
	return strings.Join(parts, " ")
}

func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func truncateToWidth(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible <= width {
		return s
	}
	runes := []rune(s)
	if len(runes) > width-1 {
		return string(runes[:width-1]) + "…"
	}
	return s
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		var current string
		for _, word := range strings.Fields(paragraph) {
			if current == "" {
				current = word
			} else if len(current)+1+len(word) <= width {
				current += " " + word
			} else {
				lines = append(lines, current)
				current = word
			}
		}
		if current != "" {
			lines = append(lines, current)
		} else {
			lines = append(lines, "")
		}
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}
