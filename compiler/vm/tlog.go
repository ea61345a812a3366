package vm

import "tlog.app/go/tlog/tlwire"

func (l Line) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 2)

	b = e.AppendKeyInt(b, "line", l.Num)
	b = e.AppendKeyString(b, "cmd", l.Cmd.String())

	return b
}

func (f *File) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 2)

	b = e.AppendKeyString(b, "name", f.Name)
	b = e.AppendKeyInt(b, "cmds", len(f.Code))

	return b
}
