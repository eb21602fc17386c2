package engine

import (
	"strconv"

	"github.com/actorfs/actorfs/pkg/store"
)

// DeviceStats is the df-style report from Engine.GetDeviceStats (§4.5),
// extended with inode/chunk counts alongside the documented device
// size and space accounting.
type DeviceStats struct {
	DeviceSize     int64
	SpaceUsed      int64
	SpaceAvailable int64
	InodeCount     int64
	ChunkCount     int64
}

func (e *Engine) getMetaInt(key string) (int64, error) {
	var v string
	found, err := e.st.Get(&v, "SELECT value FROM meta WHERE key = ?", key)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}
	return parseInt64(v)
}

func getMetaIntTx(tx *store.Tx, key string) (int64, error) {
	var v string
	found, err := tx.Get(&v, "SELECT value FROM meta WHERE key = ?", key)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}
	return parseInt64(v)
}

func setMetaIntTx(tx *store.Tx, key string, v int64) error {
	_, err := tx.Exec("UPDATE meta SET value = ? WHERE key = ?", formatInt64(v), key)
	return err
}

func (e *Engine) loadDeviceMeta() (spaceUsed, deviceSize int64, err error) {
	spaceUsed, err = e.getMetaInt("space_used")
	if err != nil {
		return 0, 0, err
	}
	deviceSize, err = e.getMetaInt("device_size")
	if err != nil {
		return 0, 0, err
	}
	return spaceUsed, deviceSize, nil
}

// GetDeviceStats returns df-style reporting (§4.5), extended with
// inode and chunk counts.
func (e *Engine) GetDeviceStats() (DeviceStats, error) {
	defer e.timeit("device_stats")()
	spaceUsed, deviceSize, err := e.loadDeviceMeta()
	if err != nil {
		return DeviceStats{}, err
	}

	var inodeCount int64
	if _, err := e.st.Get(&inodeCount, "SELECT COUNT(*) FROM files"); err != nil {
		return DeviceStats{}, err
	}
	var chunkCount int64
	if _, err := e.st.Get(&chunkCount, "SELECT COUNT(*) FROM chunks"); err != nil {
		return DeviceStats{}, err
	}

	return DeviceStats{
		DeviceSize:     deviceSize,
		SpaceUsed:      spaceUsed,
		SpaceAvailable: deviceSize - spaceUsed,
		InodeCount:     inodeCount,
		ChunkCount:     chunkCount,
	}, nil
}

// SetDeviceSize mutates the device quota (§4.5). Fails ENOSPC if the
// new size is smaller than the current space_used.
func (e *Engine) SetDeviceSize(newSize int64) error {
	defer e.timeit("set_device_size")()
	return e.st.WithTx(func(tx *store.Tx) error {
		spaceUsed, err := getMetaIntTx(tx, "space_used")
		if err != nil {
			return err
		}
		if newSize < spaceUsed {
			return newErr(ENOSPC, "setDeviceSize", "", nil)
		}
		if err := setMetaIntTx(tx, "device_size", newSize); err != nil {
			return err
		}
		e.metrics.SetDeviceStats(spaceUsed, newSize)
		return nil
	})
}

// preflightTx checks that adding `additional` bytes to space_used would
// not exceed device_size, inside an in-flight transaction, so the
// check and the mutation it guards are atomic (§4.3 step 3, §4.5's
// closing requirement, §7's ENOSPC propagation policy).
func preflightTx(tx *store.Tx, additional int64) (spaceUsed, deviceSize int64, err error) {
	spaceUsed, err = getMetaIntTx(tx, "space_used")
	if err != nil {
		return 0, 0, err
	}
	deviceSize, err = getMetaIntTx(tx, "device_size")
	if err != nil {
		return 0, 0, err
	}
	if spaceUsed+additional > deviceSize {
		return spaceUsed, deviceSize, newErr(ENOSPC, "write", "", nil)
	}
	return spaceUsed, deviceSize, nil
}

// preflightSpace runs preflightTx on its own, otherwise-empty
// transaction: a pure quota check a caller can run before committing
// to an operation (such as WriteFile's create step) that would
// otherwise have no way to undo itself on ENOSPC.
func (e *Engine) preflightSpace(additional int64) error {
	return e.st.WithTx(func(tx *store.Tx) error {
		_, _, err := preflightTx(tx, additional)
		return err
	})
}

func parseInt64(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func formatInt64(n int64) string {
	return strconv.FormatInt(n, 10)
}
