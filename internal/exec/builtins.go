package exec

import (
	"encoding/binary"

	"github.com/slimchain/slimchain/internal/types"
)

// The small built-in contract ABI of spec §8: full EVM bytecode
// interpretation is out of this budget, so execution dispatches by
// selector against these three named contracts instead of a general
// interpreter, keeping the read/write-set and proof plumbing exactly
// EVM-shaped without the interpreter itself.
var (
	SimpleStorageAddr = types.Address{19: 0x01}
	SmallBankAddr     = types.Address{19: 0x02}
	SorterAddr        = types.Address{19: 0x03}
)

const (
	selSimpleStorageSet byte = 0x01
	selSimpleStorageGet byte = 0x02
	selSmallBankSend    byte = 0x01
	selSorterSort       byte = 0x01
)

// runBuiltin is the single deterministic interpreter both the Simple and
// TEE backends call — the TEE backend differs only in the trust boundary
// wrapped around this same logic, not in the logic itself (spec §8
// scenario 3: TEE and Simple must yield an identical write set and root).
func runBuiltin(reader StateReader, req *types.TxReq) (types.WriteSet, bool, error) {
	if req.To == nil {
		return types.WriteSet{}, true, nil
	}
	if len(req.Input) == 0 {
		return types.WriteSet{}, true, nil
	}
	switch *req.To {
	case SimpleStorageAddr:
		return execSimpleStorage(reader, req)
	case SmallBankAddr:
		return execSmallBank(reader, req)
	case SorterAddr:
		return execSorter(reader, req)
	default:
		return types.WriteSet{}, true, nil
	}
}

func execSimpleStorage(reader StateReader, req *types.TxReq) (types.WriteSet, bool, error) {
	input := req.Input
	switch input[0] {
	case selSimpleStorageSet:
		if len(input) != 1+32+32 {
			return types.WriteSet{}, true, nil
		}
		key := types.BytesToHash(input[1:33])
		value := types.BytesToHash(input[33:65])
		return types.WriteSet{
			Storage: []types.StorageWrite{{Addr: *req.To, Key: key, Value: value}},
		}, false, nil
	case selSimpleStorageGet:
		if len(input) != 1+32 {
			return types.WriteSet{}, true, nil
		}
		key := types.BytesToHash(input[1:33])
		if _, err := reader.GetValue(*req.To, key); err != nil {
			return types.WriteSet{}, false, err
		}
		return types.WriteSet{}, false, nil
	default:
		return types.WriteSet{}, true, nil
	}
}

var balanceSlot = types.Hash{}

func readBalance(reader StateReader, addr types.Address) (uint64, error) {
	v, err := reader.GetValue(addr, balanceSlot)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(v[24:32]), nil
}

func encodeBalance(bal uint64) types.Hash {
	var h types.Hash
	binary.BigEndian.PutUint64(h[24:32], bal)
	return h
}

// execSmallBank moves amount from the caller's balance slot to the
// recipient's — spec §8 scenario 2's `SmallBank.sendPayment(alice,bob,10)`.
// Insufficient funds reverts with the unchanged read set and an empty
// write set, per spec §4.2's revert semantics.
func execSmallBank(reader StateReader, req *types.TxReq) (types.WriteSet, bool, error) {
	input := req.Input
	if len(input) != 1+types.AddressLength+8 || input[0] != selSmallBankSend {
		return types.WriteSet{}, true, nil
	}
	to := types.BytesToAddress(input[1 : 1+types.AddressLength])
	amount := binary.BigEndian.Uint64(input[1+types.AddressLength:])

	fromBal, err := readBalance(reader, req.Caller)
	if err != nil {
		return types.WriteSet{}, false, err
	}
	toBal, err := readBalance(reader, to)
	if err != nil {
		return types.WriteSet{}, false, err
	}
	if fromBal < amount {
		return types.WriteSet{}, true, nil
	}
	return types.WriteSet{
		Storage: []types.StorageWrite{
			{Addr: req.Caller, Key: balanceSlot, Value: encodeBalance(fromBal - amount)},
			{Addr: to, Key: balanceSlot, Value: encodeBalance(toBal + amount)},
		},
	}, false, nil
}

// execSorter reads size storage slots (0..size-1) of the called contract's
// account (req.To), sorts them ascending, and writes the result back — spec §8
// scenario 3's `Sorter.sort(size=32)`. Deterministic and side-effect-free
// beyond those slots, which is what lets Simple and TEE be compared
// directly for equality.
func execSorter(reader StateReader, req *types.TxReq) (types.WriteSet, bool, error) {
	input := req.Input
	if len(input) != 1+4 || input[0] != selSorterSort {
		return types.WriteSet{}, true, nil
	}
	size := binary.BigEndian.Uint32(input[1:5])
	if size == 0 || size > 4096 {
		return types.WriteSet{}, true, nil
	}
	values := make([]uint64, size)
	for i := uint32(0); i < size; i++ {
		slot := slotIndex(i)
		v, err := reader.GetValue(*req.To, slot)
		if err != nil {
			return types.WriteSet{}, false, err
		}
		values[i] = binary.BigEndian.Uint64(v[24:32])
	}
	sortUint64(values)

	writes := make([]types.StorageWrite, size)
	for i := uint32(0); i < size; i++ {
		writes[i] = types.StorageWrite{Addr: *req.To, Key: slotIndex(i), Value: encodeBalance(values[i])}
	}
	return types.WriteSet{Storage: writes}, false, nil
}

func slotIndex(i uint32) types.Hash {
	var h types.Hash
	binary.BigEndian.PutUint32(h[28:32], i)
	return h
}

// sortUint64 is a plain insertion sort: size is bounded (<=4096) and the
// point of this component is the execution/proof plumbing around it, not
// sort algorithm performance.
func sortUint64(v []uint64) {
	for i := 1; i < len(v); i++ {
		for j := i; j > 0 && v[j-1] > v[j]; j-- {
			v[j-1], v[j] = v[j], v[j-1]
		}
	}
}
