package manager

import (
	"bufio"
	"strings"
)

// relay forwards the session's combined output to the log, one entry per
// line, then records the process exit. It never touches the registry.
func (m *Manager) relay(s *Session) {
	log := m.log.With().Str("session", s.ID).Logger()
	br := bufio.NewReader(s.proc.Output())
	for {
		line, err := br.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line != "" {
			log.Info().Msg(strings.ToValidUTF8(line, "\uFFFD"))
		}
		if err != nil {
			break
		}
	}
	<-s.proc.Done()
	if err := s.proc.ExitErr(); err != nil {
		log.Warn().Err(err).Msg("session process exited")
	} else {
		log.Info().Msg("session process exited")
	}
	m.publish(EventSessionExit, s)
}
