package state

import (
	"github.com/chanyoung/vinum/app/vinumd/domain/model/subdisk"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/table"
	"github.com/klauspost/reedsolomon"
	"github.com/pkg/errors"
)

// rebuilder reads the data of revive blocks from the other plexes of
// the volume, or from the parity of the own plex. It works on a
// snapshot of the tables, so it runs without the machine lock.
type rebuilder struct {
	layout

	blocks   BlockDevice
	encoders map[int]reedsolomon.Encoder
}

func newRebuilder(cfg *table.Config, blocks BlockDevice) *rebuilder {
	return &rebuilder{
		layout:   layout{cfg: cfg},
		blocks:   blocks,
		encoders: make(map[int]reedsolomon.Encoder),
	}
}

func (r *rebuilder) readSubdisk(sdno int, off, n int64) ([]byte, error) {
	sd := &r.cfg.Subdisks[sdno]
	buf := make([]byte, n*subdisk.SectorSize)

	err := r.blocks.ReadAt(r.cfg.Drives[sd.Drive], buf, (sd.DriveOffset+off)*subdisk.SectorSize)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read subdisk %s", sd.Name)
	}
	return buf, nil
}

func (r *rebuilder) writeSubdisk(sdno int, off int64, buf []byte) error {
	sd := &r.cfg.Subdisks[sdno]

	err := r.blocks.WriteAt(r.cfg.Drives[sd.Drive], buf, (sd.DriveOffset+off)*subdisk.SectorSize)
	return errors.Wrapf(err, "failed to write subdisk %s", sd.Name)
}

// readMirror reads n sectors at the plex address from the up subdisks
// of the volume plexes other than exclude.
func (r *rebuilder) readMirror(volno, exclude int, addr, n int64) ([]byte, error) {
	if volno < 0 {
		return nil, ErrNoReviveSource
	}

	buf := make([]byte, 0, n*subdisk.SectorSize)
	for n > 0 {
		piece, run, err := r.readMirrorPiece(volno, exclude, addr, n)
		if err != nil {
			return nil, err
		}
		buf = append(buf, piece...)
		addr += run
		n -= run
	}
	return buf, nil
}

func (r *rebuilder) readMirrorPiece(volno, exclude int, addr, n int64) ([]byte, int64, error) {
	for _, plexno := range r.cfg.Volumes[volno].Plexes {
		if plexno == exclude {
			continue
		}

		sdno, off, run, ok := r.subdiskAt(plexno, addr)
		if !ok || r.cfg.Subdisks[sdno].State != subdisk.Up {
			continue
		}

		run = min(run, n)
		buf, err := r.readSubdisk(sdno, off, run)
		return buf, run, err
	}

	return nil, 0, errors.Wrapf(ErrNoReviveSource, "plex address %d", addr)
}

// rebuild returns the contents of the sectors [start, end) of the
// subdisk as the rest of the volume knows them.
func (r *rebuilder) rebuild(sdno int, start, end int64) ([]byte, error) {
	sd := &r.cfg.Subdisks[sdno]
	if sd.Plex < 0 {
		return nil, ErrNoReviveSource
	}
	p := &r.cfg.Plexes[sd.Plex]

	buf := make([]byte, 0, (end-start)*subdisk.SectorSize)
	for off := start; off < end; {
		var (
			piece []byte
			n     int64
			err   error
		)

		if p.Organization.IsParity() {
			piece, n, err = r.rebuildParity(sdno, off, end-off)
		} else {
			var addr int64
			addr, n, _ = r.plexAddress(sdno, off)
			n = min(n, end-off)
			piece, err = r.readMirror(p.Volume, sd.Plex, addr, n)
		}
		if err != nil {
			return nil, err
		}

		buf = append(buf, piece...)
		off += n
	}

	return buf, nil
}

// rebuildParity reconstructs up to n sectors at off of a subdisk in a
// parity plex from the rest of its stripe row. Siblings which are not
// up contribute their data from the other plexes when they can.
func (r *rebuilder) rebuildParity(sdno int, off, n int64) ([]byte, int64, error) {
	sd := &r.cfg.Subdisks[sdno]
	p := &r.cfg.Plexes[sd.Plex]
	k := len(p.Subdisks)
	if k < 2 {
		return nil, 0, ErrNoReviveSource
	}

	s := stripeSize(p)
	row := off / s
	n = min(n, s-off%s)
	parity := parityPosition(p.Organization, k, row)

	enc, err := r.encoder(k)
	if err != nil {
		return nil, 0, err
	}

	shards := make([][]byte, k)
	for pos, no := range p.Subdisks {
		if no == sdno {
			continue
		}

		var shard []byte
		switch {
		case r.cfg.Subdisks[no].State == subdisk.Up:
			shard, err = r.readSubdisk(no, off, n)
		case pos != parity:
			addr, _, _ := r.plexAddress(no, off)
			shard, err = r.readMirror(p.Volume, sd.Plex, addr, n)
		default:
			continue
		}

		if errors.Cause(err) == ErrNoReviveSource {
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		shards[shardIndex(pos, parity, k)] = shard
	}

	if err := enc.Reconstruct(shards); err != nil {
		return nil, 0, errors.Wrapf(ErrNoReviveSource, "subdisk %s: %v", sd.Name, err)
	}
	return shards[shardIndex(position(p, sdno), parity, k)], n, nil
}

// encoder returns the erasure coder of a parity plex with k subdisks.
func (r *rebuilder) encoder(k int) (reedsolomon.Encoder, error) {
	if enc, ok := r.encoders[k]; ok {
		return enc, nil
	}

	enc, err := reedsolomon.New(k-1, 1)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create parity coder for %d subdisks", k)
	}
	r.encoders[k] = enc
	return enc, nil
}
