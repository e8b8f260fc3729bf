package soft

import (
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// parallelRows is the smallest target height that is shaded on the worker pool.
const parallelRows = 64

// minClipW is the smallest clip w kept after clipping, guarding the perspective divide.
const minClipW = 1e-6

// screenVertex is a vertex after the perspective divide and viewport transform.
type screenVertex struct {
	x, y, z  float32
	invW     float32
	varyings Varyings
}

type triangle [3]screenVertex

// clipVertex is a vertex shader result before the perspective divide.
type clipVertex struct {
	pos      mgl32.Vec4
	varyings Varyings
}

// clipPlanes are the half spaces a triangle is clipped to before the divide: z >= 0 is the
// near plane of the zero-to-one depth range, w >= minClipW keeps the divide finite.
var clipPlanes = [...]func(mgl32.Vec4) float32{
	func(c mgl32.Vec4) float32 { return c[2] },
	func(c mgl32.Vec4) float32 { return c[3] - minClipW },
}

// assemble runs the vertex shader over every referenced vertex of every instance, clips the
// triangles against the near plane and builds the screen-space triangles that survive culling.
func assemble(vs VertexShader, indices []uint32, vertexCount, instances int, cull gpu.CullMode, width, height int) []triangle {
	tris := make([]triangle, 0, len(indices)/3*instances)
	shaded := make([]clipVertex, vertexCount)
	toScreen := func(v clipVertex) screenVertex {
		invW := 1 / v.pos[3]
		return screenVertex{
			x:        (v.pos[0]*invW*0.5 + 0.5) * float32(width),
			y:        (0.5 - v.pos[1]*invW*0.5) * float32(height),
			z:        v.pos[2] * invW,
			invW:     invW,
			varyings: v.varyings,
		}
	}
	emit := func(t triangle) {
		area := signedArea(t[0], t[1], t[2])
		if area == 0 {
			return
		}
		// Screen y points down, so counter-clockwise triangles have negative area here.
		front := area < 0
		if (cull == gpu.CullBack && !front) || (cull == gpu.CullFront && front) {
			return
		}
		if area < 0 {
			t[1], t[2] = t[2], t[1]
		}
		tris = append(tris, t)
	}

	poly := make([]clipVertex, 0, 3+len(clipPlanes))
	for inst := range instances {
		for v := range vertexCount {
			clip, out := vs(v, inst)
			shaded[v] = clipVertex{pos: clip, varyings: out}
		}
		for i := 0; i+2 < len(indices); i += 3 {
			poly = append(poly[:0], shaded[indices[i]], shaded[indices[i+1]], shaded[indices[i+2]])
			poly = clipPolygon(poly)
			if len(poly) < 3 {
				continue
			}
			first := toScreen(poly[0])
			for j := 1; j+1 < len(poly); j++ {
				emit(triangle{first, toScreen(poly[j]), toScreen(poly[j+1])})
			}
		}
	}
	return tris
}

// clipPolygon clips a convex polygon against every clip plane, interpolating positions and
// varyings linearly in clip space along cut edges. A triangle yields at most five vertices.
func clipPolygon(poly []clipVertex) []clipVertex {
	for _, plane := range clipPlanes {
		allInside := true
		for _, v := range poly {
			if plane(v.pos) < 0 {
				allInside = false
				break
			}
		}
		if allInside {
			continue
		}
		out := make([]clipVertex, 0, len(poly)+1)
		for j, cur := range poly {
			next := poly[(j+1)%len(poly)]
			dc, dn := plane(cur.pos), plane(next.pos)
			if dc >= 0 {
				out = append(out, cur)
			}
			if (dc >= 0) != (dn >= 0) {
				out = append(out, lerpClip(cur, next, dc/(dc-dn)))
			}
		}
		poly = out
		if len(poly) < 3 {
			return poly
		}
	}
	return poly
}

func lerpClip(a, b clipVertex, t float32) clipVertex {
	return clipVertex{
		pos:      a.pos.Add(b.pos.Sub(a.pos).Mul(t)),
		varyings: weighted(a.varyings, b.varyings, Varyings{}, 1-t, t, 0),
	}
}

func signedArea(a, b, c screenVertex) float32 {
	return (b.x-a.x)*(c.y-a.y) - (b.y-a.y)*(c.x-a.x)
}

// edge evaluates the edge function of a->b at p. It is positive on the inside of a
// positively oriented triangle.
func edge(a, b screenVertex, px, py float32) float32 {
	return (b.x-a.x)*(py-a.y) - (b.y-a.y)*(px-a.x)
}

// ownsEdge breaks ties for pixel centres exactly on an edge. An edge shared by two
// triangles is walked in opposite directions, so exactly one of them owns it.
func ownsEdge(a, b screenVertex) bool {
	dy := b.y - a.y
	return dy > 0 || (dy == 0 && b.x < a.x)
}

func inside(w float32, a, b screenVertex) bool {
	return w > 0 || (w == 0 && ownsEdge(a, b))
}

// rasterize shades tris into rt. Tall targets are split into row bands shaded concurrently
// on the device pool; every band walks the triangles in submission order.
func (d *Device) rasterize(rt *renderTarget, tris []triangle, fs FragmentShader, states gpu.RenderStates) {
	if len(tris) == 0 {
		return
	}
	if d.workers <= 1 || rt.height < parallelRows {
		rasterizeRows(rt, tris, fs, states, 0, rt.height)
		return
	}

	bandRows := (rt.height + d.workers - 1) / d.workers
	var wg sync.WaitGroup
	for id, y0 := 0, 0; y0 < rt.height; id, y0 = id+1, y0+bandRows {
		y1 := min(y0+bandRows, rt.height)
		wg.Add(1)
		d.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				rasterizeRows(rt, tris, fs, states, y0, y1)
				return nil, nil
			},
		})
	}
	wg.Wait()
}

// rasterizeRows shades the part of every triangle that falls in rows [y0, y1).
func rasterizeRows(rt *renderTarget, tris []triangle, fs FragmentShader, states gpu.RenderStates, y0, y1 int) {
	for _, t := range tris {
		a, b, c := t[0], t[1], t[2]
		area := signedArea(a, b, c)

		minX := max(int(math32.Floor(min(a.x, b.x, c.x))), 0)
		maxX := min(int(math32.Ceil(max(a.x, b.x, c.x))), rt.width)
		minY := max(int(math32.Floor(min(a.y, b.y, c.y))), y0)
		maxY := min(int(math32.Ceil(max(a.y, b.y, c.y))), y1)

		for py := minY; py < maxY; py++ {
			cy := float32(py) + 0.5
			for px := minX; px < maxX; px++ {
				cx := float32(px) + 0.5
				w0 := edge(b, c, cx, cy)
				w1 := edge(c, a, cx, cy)
				w2 := edge(a, b, cx, cy)
				if !inside(w0, b, c) || !inside(w1, c, a) || !inside(w2, a, b) {
					continue
				}
				l0, l1, l2 := w0/area, w1/area, w2/area

				z := l0*a.z + l1*b.z + l2*c.z
				if z < 0 || z > 1 {
					continue
				}
				pix := py*rt.width + px
				if rt.depth != nil && !depthPasses(states.DepthTest, z, rt.depth.texels[pix]) {
					continue
				}

				p0, p1, p2 := l0*a.invW, l1*b.invW, l2*c.invW
				sum := p0 + p1 + p2
				in := weighted(a.varyings, b.varyings, c.varyings, p0/sum, p1/sum, p2/sum)

				out, keep := fs(in)
				if !keep {
					continue
				}
				if rt.depth != nil && states.DepthWrite {
					rt.depth.texels[pix] = z
				}
				if states.ColorWrite {
					for i, target := range rt.colors {
						blend(target.texels[pix*4:pix*4+4], out[i], states.Blend)
					}
				}
			}
		}
	}
}

func depthPasses(test gpu.DepthTest, z, stored float32) bool {
	switch test {
	case gpu.DepthTestLess:
		return z < stored
	case gpu.DepthTestLessEqual:
		return z <= stored
	default:
		return true
	}
}

func blend(dst []float32, src mgl32.Vec4, mode gpu.BlendMode) {
	switch mode {
	case gpu.BlendAdditive:
		for i := range 4 {
			dst[i] += src[i]
		}
	case gpu.BlendAlpha:
		a := src[3]
		for i := range 3 {
			dst[i] = src[i]*a + dst[i]*(1-a)
		}
		dst[3] = a + dst[3]*(1-a)
	default:
		copy(dst, src[:])
	}
}
