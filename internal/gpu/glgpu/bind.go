package glgpu

import "github.com/go-gl/gl/v4.1-core/gl"

// bindScope snapshots the GL binding state a draw touches so callers that
// share the context (the viewer's UI pass) see their bindings intact.
type bindScope struct {
	program   int32
	vao       int32
	active    int32
	tex3DUnit [2]int32
	tex1DUnit [2]int32
}

func pushBindings() *bindScope {
	s := &bindScope{}
	gl.GetIntegerv(gl.CURRENT_PROGRAM, &s.program)
	gl.GetIntegerv(gl.VERTEX_ARRAY_BINDING, &s.vao)
	gl.GetIntegerv(gl.ACTIVE_TEXTURE, &s.active)
	for unit := 0; unit < 2; unit++ {
		gl.ActiveTexture(uint32(gl.TEXTURE0 + unit))
		gl.GetIntegerv(gl.TEXTURE_BINDING_3D, &s.tex3DUnit[unit])
		gl.GetIntegerv(gl.TEXTURE_BINDING_1D, &s.tex1DUnit[unit])
	}
	return s
}

func (s *bindScope) restore() {
	for unit := 0; unit < 2; unit++ {
		gl.ActiveTexture(uint32(gl.TEXTURE0 + unit))
		gl.BindTexture(gl.TEXTURE_3D, uint32(s.tex3DUnit[unit]))
		gl.BindTexture(gl.TEXTURE_1D, uint32(s.tex1DUnit[unit]))
	}
	gl.ActiveTexture(uint32(s.active))
	gl.BindVertexArray(uint32(s.vao))
	gl.UseProgram(uint32(s.program))
}
