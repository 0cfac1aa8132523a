package state

import (
	"github.com/chanyoung/vinum/app/vinumd/domain/model/plex"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/table"
)

// layout maps subdisk offsets to plex addresses and back.
// Offsets, addresses and lengths are in sectors.
type layout struct {
	cfg *table.Config
}

func stripeSize(p *plex.Plex) int64 {
	if p.StripeSize > 0 {
		return p.StripeSize
	}
	return plex.DefaultStripeSize
}

// parityPosition returns the position of the subdisk which holds the
// parity of the stripe row in a plex of k subdisks.
func parityPosition(org plex.Organization, k int, row int64) int {
	if org == plex.RAID5 {
		return k - 1 - int(row%int64(k))
	}
	return k - 1
}

// shardIndex returns the erasure code shard of the subdisk at pos.
// Data shards come first in plex order, the parity shard is last.
func shardIndex(pos, parity, k int) int {
	switch {
	case pos == parity:
		return k - 1
	case pos > parity:
		return pos - 1
	default:
		return pos
	}
}

func position(p *plex.Plex, sdno int) int {
	for i, no := range p.Subdisks {
		if no == sdno {
			return i
		}
	}
	return -1
}

// plexAddress maps the offset of the subdisk to the address space of
// its plex. n is the number of sectors the mapping stays contiguous.
// ok is false if the offset holds parity.
func (l layout) plexAddress(sdno int, off int64) (addr, n int64, ok bool) {
	sd := &l.cfg.Subdisks[sdno]
	p := &l.cfg.Plexes[sd.Plex]
	k := int64(len(p.Subdisks))
	pos := int64(position(p, sdno))

	if p.Organization == plex.Concat {
		return sd.PlexOffset + off, sd.Size - off, true
	}

	s := stripeSize(p)
	row, within := off/s, off%s

	if p.Organization == plex.Striped {
		return (row*k+pos)*s + within, s - within, true
	}

	parity := int64(parityPosition(p.Organization, int(k), row))
	if pos == parity {
		return 0, s - within, false
	}
	if pos > parity {
		pos--
	}
	return (row*(k-1)+pos)*s + within, s - within, true
}

// subdiskAt maps the plex address to a subdisk of the plex and the
// offset in it. n is the number of sectors the mapping stays
// contiguous. ok is false if no subdisk holds the address.
func (l layout) subdiskAt(plexno int, addr int64) (sdno int, off, n int64, ok bool) {
	p := &l.cfg.Plexes[plexno]
	k := int64(len(p.Subdisks))

	var pos int64
	switch p.Organization {
	case plex.Concat:
		for _, no := range p.Subdisks {
			sd := &l.cfg.Subdisks[no]
			if addr >= sd.PlexOffset && addr < sd.PlexOffset+sd.Size {
				off = addr - sd.PlexOffset
				return no, off, sd.Size - off, true
			}
		}
		return -1, 0, 0, false

	case plex.Striped:
		if k == 0 {
			return -1, 0, 0, false
		}
		s := stripeSize(p)
		chunk := addr / s
		pos = chunk % k
		off, n = (chunk/k)*s+addr%s, s-addr%s

	default:
		if k < 2 {
			return -1, 0, 0, false
		}
		s := stripeSize(p)
		chunk := addr / s
		row := chunk / (k - 1)
		pos = chunk % (k - 1)
		if pos >= int64(parityPosition(p.Organization, int(k), row)) {
			pos++
		}
		off, n = row*s+addr%s, s-addr%s
	}

	sdno = p.Subdisks[pos]
	if off >= l.cfg.Subdisks[sdno].Size {
		return -1, 0, 0, false
	}
	return sdno, off, n, true
}
