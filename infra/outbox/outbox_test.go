package outbox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *Outbox {
	t.Helper()
	o, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = o.Close() })
	return o
}

func TestPutGetDelete(t *testing.T) {
	o := openTest(t)

	require.NoError(t, o.PutNew(1, []byte(`{"kind":"order_matched"}`)))

	e, err := o.Get(1)
	require.NoError(t, err)
	require.Equal(t, StateNew, e.State)
	require.Equal(t, []byte(`{"kind":"order_matched"}`), e.Payload)

	require.NoError(t, o.Delete(1))
	_, err = o.Get(1)
	require.Error(t, err)
}

func TestStateTransitions(t *testing.T) {
	o := openTest(t)
	require.NoError(t, o.PutNew(1, []byte("a")))

	require.NoError(t, o.UpdateState(1, StateSent, 0))
	e, err := o.Get(1)
	require.NoError(t, err)
	require.Equal(t, StateSent, e.State)
	require.NotZero(t, e.LastAttempt)

	require.NoError(t, o.UpdateState(1, StateNew, 3))
	e, err = o.Get(1)
	require.NoError(t, err)
	require.Equal(t, StateNew, e.State)
	require.Equal(t, uint32(3), e.Retries)
}

func TestScanByStateInSequenceOrder(t *testing.T) {
	o := openTest(t)
	for seq := uint64(1); seq <= 5; seq++ {
		require.NoError(t, o.PutNew(seq, []byte{byte(seq)}))
	}
	require.NoError(t, o.UpdateState(2, StateSent, 0))
	require.NoError(t, o.UpdateState(4, StateSent, 0))

	var seen []uint64
	err := o.ScanByState(StateNew, func(seq uint64, e Entry) error {
		seen = append(seen, seq)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 3, 5}, seen)
}

func TestMaxSeq(t *testing.T) {
	o := openTest(t)

	max, err := o.MaxSeq()
	require.NoError(t, err)
	require.Equal(t, uint64(0), max)

	require.NoError(t, o.PutNew(3, []byte("a")))
	require.NoError(t, o.PutNew(12, []byte("b")))

	max, err = o.MaxSeq()
	require.NoError(t, err)
	require.Equal(t, uint64(12), max)
}
