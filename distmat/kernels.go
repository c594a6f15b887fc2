package distmat

import (
	"github.com/gomlx/exceptions"
	"k8s.io/klog/v2"

	"github.com/gridmat/gridmat/comm"
	"github.com/gridmat/gridmat/grid"
	"github.com/gridmat/gridmat/layout"
)

// packPanel packs m's local panel compactly (column-major, leading dimension
// = height) into out, which must hold height*width elements.
func packPanel[T Field](m *Matrix[T], out []T) {
	h := m.height
	for j := 0; j < m.width; j++ {
		copy(out[j*h:(j+1)*h], m.data[j*m.ldim:j*m.ldim+h])
	}
}

// unpackPanel is the inverse of packPanel.
func unpackPanel[T Field](m *Matrix[T], in []T) {
	h := m.height
	for j := 0; j < m.width; j++ {
		copy(m.data[j*m.ldim:j*m.ldim+h], in[j*h:(j+1)*h])
	}
}

// minCollPortion is the smallest per-peer portion, in elements, of a padded
// collective. Scope members always agree on the portion size, so the floor
// only pads scopes whose panels are collectively empty.
const minCollPortion = 1

// gatherPortion sizes the equal per-peer portion of a padded all-gather.
func gatherPortion(extent, stride, otherLen int) int {
	portion := layout.MaxLocalLength(extent, stride) * otherLen
	if portion < minCollPortion {
		portion = minCollPortion
	}
	return portion
}

// scopeRankOfCycle maps a rank of d's ownership cycle to the corresponding
// rank within d's communication scope.
func scopeRankOfCycle(d Dist, g *grid.Grid, k int) int {
	if d != MD {
		return k // every non-MD scope is ordered by cycle rank
	}
	return vcOfCycle(d, g, k)
}

// vcOfCycle returns the VC rank of the process at rank k of d's ownership
// cycle; d must pin both grid coordinates (VC, VR or MD).
func vcOfCycle(d Dist, g *grid.Grid, k int) int {
	row, col := d.gridCoordsOfCycleRank(g, k)
	if row < 0 || col < 0 {
		exceptions.Panicf("distmat: cycle rank %d of %s does not pin a grid process", k, d)
	}
	return g.VCRankOf(row, col)
}

// kShift realigns one axis: same tag on both sides, different alignment. One
// paired exchange within the tag's scope; each process sends its whole panel
// to the peer owning it under the new alignment.
func kShift[T Field](dst, src *DistMatrix[T], axis int, aux *arena) error {
	g := dst.g
	d := dst.desc.dist(axis)
	stride := d.Stride(g)
	myRank := d.rankOf(g)
	if myRank < 0 {
		return nil // off the owning diagonal: holds nothing on either side
	}
	srcAlign, dstAlign := src.desc.align(axis), dst.desc.align(axis)
	if klog.V(2).Enabled() {
		klog.Infof("gridmat: unaligned redistribution %s <- %s", dst.desc, src.desc)
	}
	sendCycle := (myRank + dstAlign - srcAlign + stride) % stride
	recvCycle := (myRank + srcAlign - dstAlign + stride) % stride

	sc := d.scope(g)
	sn := src.local.height * src.local.width
	rn := dst.local.height * dst.local.width
	aux.Require(arenaBytes[T](sn) + arenaBytes[T](rn))
	defer aux.Release()
	sendBuf := arenaAlloc[T](aux, sn)
	recvBuf := arenaAlloc[T](aux, rn)
	packPanel(&src.local, sendBuf)
	err := sc.SendRecv(comm.Bytes(sendBuf), scopeRankOfCycle(d, g, sendCycle),
		comm.Bytes(recvBuf), scopeRankOfCycle(d, g, recvCycle))
	if err != nil {
		return err
	}
	unpackPanel(&dst.local, recvBuf)
	return nil
}

// kGather coarsens one axis to Star: an all-gather within the source tag's
// scope assembles every peer's shard into a full local copy on every
// participant. Portions are padded to the maximum local length so they are
// equal-sized; the unpack interleaves each peer's rows or columns at the
// positions its shift dictates.
func kGather[T Field](dst, src *DistMatrix[T], axis int, aux *arena) error {
	g := src.g
	d := src.desc.dist(axis)
	stride := d.Stride(g)
	sc := d.scope(g)
	q := sc.Size()
	extent := src.axisExtent(axis)
	otherLen := src.axisLocalLen(1 - axis)
	portion := gatherPortion(extent, stride, otherLen)

	aux.Require(arenaBytes[T](portion) + arenaBytes[T](q*portion))
	defer aux.Release()
	sendBuf := arenaAlloc[T](aux, portion)
	recvBuf := arenaAlloc[T](aux, q*portion)
	packPanel(&src.local, sendBuf)
	if err := sc.AllGather(comm.Bytes(sendBuf), comm.Bytes(recvBuf)); err != nil {
		return err
	}

	srcAlign := src.desc.align(axis)
	ld := dst.local.ldim
	for t := 0; t < q; t++ {
		cycle := d.scopeRankOf(g, t)
		if cycle < 0 {
			continue // peer outside the ownership cycle contributed nothing
		}
		shift := layout.Shift(cycle, srcAlign, stride)
		length := layout.LocalLength(extent, shift, stride)
		data := recvBuf[t*portion:]
		if axis == 0 {
			for lj := 0; lj < otherLen; lj++ {
				for k := 0; k < length; k++ {
					dst.local.data[(shift+k*stride)+lj*ld] = data[k+lj*length]
				}
			}
		} else {
			for k := 0; k < length; k++ {
				j := shift + k*stride
				copy(dst.local.data[j*ld:j*ld+otherLen], data[k*otherLen:(k+1)*otherLen])
			}
		}
	}
	return nil
}

// kRefine de-replicates one axis, Star -> cyclic: each process locally
// subselects the entries it owns under the target distribution. No
// communication.
func kRefine[T Field](dst, src *DistMatrix[T], axis int) {
	stride := dst.axisStride(axis)
	shift := dst.axisShift(axis)
	if shift < 0 {
		return
	}
	length := dst.axisLocalLen(axis)
	otherLen := dst.axisLocalLen(1 - axis)
	dld, sld := dst.local.ldim, src.local.ldim
	if axis == 0 {
		for lj := 0; lj < otherLen; lj++ {
			for k := 0; k < length; k++ {
				dst.local.data[k+lj*dld] = src.local.data[(shift+k*stride)+lj*sld]
			}
		}
	} else {
		for k := 0; k < length; k++ {
			j := shift + k*stride
			copy(dst.local.data[k*dld:k*dld+otherLen], src.local.data[j*sld:j*sld+otherLen])
		}
	}
}

// kSubRefine refines a grid-dimension cycle into the linear-rank cycle that
// subdivides it (MC->VC or MR->VR, alignment carried over): every entry a
// process owns under the finer cycle it already holds under the coarser one,
// so this is a strided local subselection with no communication.
func kSubRefine[T Field](dst, src *DistMatrix[T], axis int) {
	s1 := src.axisStride(axis)
	p := dst.axisStride(axis)
	stepN := p / s1
	offset := (dst.axisShift(axis) - src.axisShift(axis)) / s1
	length := dst.axisLocalLen(axis)
	otherLen := dst.axisLocalLen(1 - axis)
	dld, sld := dst.local.ldim, src.local.ldim
	if axis == 0 {
		for lj := 0; lj < otherLen; lj++ {
			for k := 0; k < length; k++ {
				dst.local.data[k+lj*dld] = src.local.data[(offset+k*stepN)+lj*sld]
			}
		}
	} else {
		for k := 0; k < length; k++ {
			j := offset + k*stepN
			copy(dst.local.data[k*dld:k*dld+otherLen], src.local.data[j*sld:j*sld+otherLen])
		}
	}
}

// kSuperGather coarsens a linear-rank cycle into the grid-dimension cycle it
// subdivides (VC->MC or VR->MR): the shards of a process's grid row (for VC;
// grid column for VR) union to its coarse shard, so one all-gather over the
// complementary scope assembles it.
func kSuperGather[T Field](dst, src *DistMatrix[T], axis int, aux *arena) error {
	g := src.g
	p := src.axisStride(axis)
	srcD := src.desc.dist(axis)
	sc := g.RowComm()
	if srcD == VR {
		sc = g.ColComm()
	}
	q := sc.Size()
	extent := src.axisExtent(axis)
	otherLen := src.axisLocalLen(1 - axis)
	portion := gatherPortion(extent, p, otherLen)

	aux.Require(arenaBytes[T](portion) + arenaBytes[T](q*portion))
	defer aux.Release()
	sendBuf := arenaAlloc[T](aux, portion)
	recvBuf := arenaAlloc[T](aux, q*portion)
	packPanel(&src.local, sendBuf)
	if err := sc.AllGather(comm.Bytes(sendBuf), comm.Bytes(recvBuf)); err != nil {
		return err
	}

	srcAlign := src.desc.align(axis)
	s2 := dst.axisStride(axis)
	dstShift := dst.axisShift(axis)
	stepN := p / s2
	dld := dst.local.ldim
	for t := 0; t < q; t++ {
		cycle := g.Row() + t*g.Height() // peer t's VC rank: grid column t of my row
		if srcD == VR {
			cycle = g.Col() + t*g.Width() // peer t's VR rank: grid row t of my column
		}
		shift := layout.Shift(cycle, srcAlign, p)
		length := layout.LocalLength(extent, shift, p)
		offset := (shift - dstShift) / s2
		data := recvBuf[t*portion:]
		if axis == 0 {
			for lj := 0; lj < otherLen; lj++ {
				for k := 0; k < length; k++ {
					dst.local.data[(offset+k*stepN)+lj*dld] = data[k+lj*length]
				}
			}
		} else {
			for k := 0; k < length; k++ {
				j := offset + k*stepN
				copy(dst.local.data[j*dld:j*dld+otherLen], data[k*otherLen:(k+1)*otherLen])
			}
		}
	}
	return nil
}

// kPermute converts between the two linear-rank cycles (VC<->VR): the shard a
// process holds moves wholesale to the process owning it under the other
// linearization, one paired exchange over the VC scope.
func kPermute[T Field](dst, src *DistMatrix[T], axis int, aux *arena) error {
	g := src.g
	p := src.axisStride(axis)
	align := src.desc.align(axis)
	sc := g.VCComm()

	sendRank := vcOfCycle(dst.desc.dist(axis), g, (src.axisShift(axis)+align)%p)
	recvRank := vcOfCycle(src.desc.dist(axis), g, (dst.axisShift(axis)+align)%p)

	sn := src.local.height * src.local.width
	rn := dst.local.height * dst.local.width
	aux.Require(arenaBytes[T](sn) + arenaBytes[T](rn))
	defer aux.Release()
	sendBuf := arenaAlloc[T](aux, sn)
	recvBuf := arenaAlloc[T](aux, rn)
	packPanel(&src.local, sendBuf)
	if err := sc.SendRecv(comm.Bytes(sendBuf), sendRank, comm.Bytes(recvBuf), recvRank); err != nil {
		return err
	}
	unpackPanel(&dst.local, recvBuf)
	return nil
}
