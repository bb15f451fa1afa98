package srvctlv1

import (
	"time"

	"google.golang.org/protobuf/types/known/structpb"
)

// Status is the wire view of the supervised server.
type Status struct {
	State     string
	Running   bool
	PID       int
	Command   string
	StartedAt time.Time
	Busy      bool
	InFlight  string
	LastExit  *Exit
}

// Exit describes the last close of the server.
type Exit struct {
	PID       int
	Code      int
	Requested bool
	At        time.Time
}

// CommandResult is the outcome of one console command.
type CommandResult struct {
	Keyword string
	Command string
	Output  string
}

// ExecResult is the outcome of a console input line.
type ExecResult struct {
	Commands []string
}

// Backup is one entry of the backup catalog.
type Backup struct {
	Name    string
	Path    string
	ModTime time.Time
}

// LogEntry is one recorded console line.
type LogEntry struct {
	Index uint64
	Kind  string
	Data  string
	Time  time.Time
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func str(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func num(s *structpb.Struct, key string) float64 {
	return s.GetFields()[key].GetNumberValue()
}

func flag(s *structpb.Struct, key string) bool {
	return s.GetFields()[key].GetBoolValue()
}

// Struct encodes the status.
func (v Status) Struct() (*structpb.Struct, error) {
	fields := map[string]any{
		"state":      v.State,
		"running":    v.Running,
		"pid":        v.PID,
		"command":    v.Command,
		"started_at": formatTime(v.StartedAt),
		"busy":       v.Busy,
		"in_flight":  v.InFlight,
	}
	if v.LastExit != nil {
		fields["last_exit"] = map[string]any{
			"pid":       v.LastExit.PID,
			"code":      v.LastExit.Code,
			"requested": v.LastExit.Requested,
			"at":        formatTime(v.LastExit.At),
		}
	}
	return structpb.NewStruct(fields)
}

// StatusFromStruct decodes a status; missing fields stay zero.
func StatusFromStruct(s *structpb.Struct) Status {
	v := Status{
		State:     str(s, "state"),
		Running:   flag(s, "running"),
		PID:       int(num(s, "pid")),
		Command:   str(s, "command"),
		StartedAt: parseTime(str(s, "started_at")),
		Busy:      flag(s, "busy"),
		InFlight:  str(s, "in_flight"),
	}
	if exit := s.GetFields()["last_exit"].GetStructValue(); exit != nil {
		v.LastExit = &Exit{
			PID:       int(num(exit, "pid")),
			Code:      int(num(exit, "code")),
			Requested: flag(exit, "requested"),
			At:        parseTime(str(exit, "at")),
		}
	}
	return v
}

// Struct encodes the command result.
func (v CommandResult) Struct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"keyword": v.Keyword,
		"command": v.Command,
		"output":  v.Output,
	})
}

// CommandResultFromStruct decodes a command result.
func CommandResultFromStruct(s *structpb.Struct) CommandResult {
	return CommandResult{
		Keyword: str(s, "keyword"),
		Command: str(s, "command"),
		Output:  str(s, "output"),
	}
}

// Struct encodes the exec result.
func (v ExecResult) Struct() (*structpb.Struct, error) {
	cmds := make([]any, len(v.Commands))
	for i, c := range v.Commands {
		cmds[i] = c
	}
	return structpb.NewStruct(map[string]any{"commands": cmds})
}

// ExecResultFromStruct decodes an exec result.
func ExecResultFromStruct(s *structpb.Struct) ExecResult {
	var v ExecResult
	for _, c := range s.GetFields()["commands"].GetListValue().GetValues() {
		v.Commands = append(v.Commands, c.GetStringValue())
	}
	return v
}

// Struct encodes the backup.
func (v Backup) Struct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"name":     v.Name,
		"path":     v.Path,
		"mod_time": formatTime(v.ModTime),
	})
}

// BackupFromStruct decodes a backup.
func BackupFromStruct(s *structpb.Struct) Backup {
	return Backup{
		Name:    str(s, "name"),
		Path:    str(s, "path"),
		ModTime: parseTime(str(s, "mod_time")),
	}
}

// BackupList encodes backups in order.
func BackupList(backups []Backup) (*structpb.ListValue, error) {
	out := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(backups))}
	for _, b := range backups {
		s, err := b.Struct()
		if err != nil {
			return nil, err
		}
		out.Values = append(out.Values, structpb.NewStructValue(s))
	}
	return out, nil
}

// BackupsFromList decodes a backup list, skipping non-object values.
func BackupsFromList(l *structpb.ListValue) []Backup {
	out := make([]Backup, 0, len(l.GetValues()))
	for _, v := range l.GetValues() {
		if s := v.GetStructValue(); s != nil {
			out = append(out, BackupFromStruct(s))
		}
	}
	return out
}

// Struct encodes the log entry.
func (v LogEntry) Struct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"index": v.Index,
		"kind":  v.Kind,
		"data":  v.Data,
		"time":  formatTime(v.Time),
	})
}

// LogEntryFromStruct decodes a log entry.
func LogEntryFromStruct(s *structpb.Struct) LogEntry {
	return LogEntry{
		Index: uint64(num(s, "index")),
		Kind:  str(s, "kind"),
		Data:  str(s, "data"),
		Time:  parseTime(str(s, "time")),
	}
}

// LogList encodes log entries in order.
func LogList(entries []LogEntry) (*structpb.ListValue, error) {
	out := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(entries))}
	for _, e := range entries {
		s, err := e.Struct()
		if err != nil {
			return nil, err
		}
		out.Values = append(out.Values, structpb.NewStructValue(s))
	}
	return out, nil
}

// LogsFromList decodes a log list, skipping non-object values.
func LogsFromList(l *structpb.ListValue) []LogEntry {
	out := make([]LogEntry, 0, len(l.GetValues()))
	for _, v := range l.GetValues() {
		if s := v.GetStructValue(); s != nil {
			out = append(out, LogEntryFromStruct(s))
		}
	}
	return out
}
