package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/openmined/pagesync/internal/assets"
)

type (
	bucketMsg assets.BucketReport
	finishMsg struct{}
)

// uploadModel renders one progress line for the bucket uploads
type uploadModel struct {
	bar     progress.Model
	total   int
	done    int
	skipped int
	retries int
	bytes   int64
}

func newUploadModel(total int) uploadModel {
	return uploadModel{
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		total: total,
	}
}

func (m uploadModel) Init() tea.Cmd {
	return nil
}

func (m uploadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case bucketMsg:
		m.done++
		m.bytes += msg.Bytes
		if msg.Skipped {
			m.skipped++
		}
		if msg.Attempts > 1 {
			m.retries += msg.Attempts - 1
		}
	case finishMsg:
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.bar.Width = max(min(msg.Width-40, 60), 10)
	}
	return m, nil
}

func (m uploadModel) View() string {
	percent := 1.0
	if m.total > 0 {
		percent = float64(m.done) / float64(m.total)
	}

	line := fmt.Sprintf("%s %s %d/%d buckets %s",
		cyan.Render("uploading"),
		m.bar.ViewAs(percent),
		m.done, m.total,
		gray.Render(humanize.Bytes(uint64(m.bytes))),
	)
	if m.retries > 0 {
		line += gray.Render(fmt.Sprintf(" (%d retries)", m.retries))
	}
	return line + "\n"
}

// teaProgress drives uploadModel from the syncer's progress callbacks.
// The program only runs while buckets are uploading.
type teaProgress struct {
	out     io.Writer
	program *tea.Program
	done    chan struct{}
}

func newTeaProgress(out io.Writer) *teaProgress {
	return &teaProgress{out: out}
}

func (p *teaProgress) Start(total int) {
	p.program = tea.NewProgram(newUploadModel(total),
		tea.WithOutput(p.out),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		if _, err := p.program.Run(); err != nil {
			slog.Debug("progress", "error", err)
		}
	}()
}

func (p *teaProgress) BucketDone(report assets.BucketReport) {
	if p.program != nil {
		p.program.Send(bucketMsg(report))
	}
}

func (p *teaProgress) Finish() {
	if p.program == nil {
		return
	}
	p.program.Send(finishMsg{})
	<-p.done
	p.program = nil
}
