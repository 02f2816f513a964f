package consensus

import (
	"math/big"

	"github.com/sharded-pos/beacon/crypto"
)

// testKey is a deterministic BLS keypair used to build real (non-mocked)
// signatures for deposits, attestations, and slashing fixtures.
type testKey struct {
	secret *big.Int
	pubkey BLSPubkey
}

func newTestKey(seed int64) testKey {
	secret := big.NewInt(seed + 1) // avoid the zero scalar
	return testKey{secret: secret, pubkey: BLSPubkey(crypto.BLSPubkeyFromSecret(secret))}
}

func (k testKey) sign(msg []byte) BLSSignature {
	// Sign through blst: every signature check in consensus goes through the
	// default blst backend, whose hash-to-G2 differs from crypto.BLSSign's.
	sig, err := crypto.BlstSign(k.secret.FillBytes(make([]byte, 32)), msg)
	if err != nil {
		panic(err)
	}
	return BLSSignature(sig)
}

func aggregateSigs(sigs []BLSSignature) BLSSignature {
	raw := make([][96]byte, len(sigs))
	for i, s := range sigs {
		raw[i] = [96]byte(s)
	}
	return BLSSignature(crypto.AggregateSignatures(raw))
}

// testZeroHashes computes the zero-subtree hash at every level of a Merkle
// tree of the given depth, using the protocol's own H oracle -- the same
// incremental-tree convention verifyMerkleBranch checks against.
func testZeroHashes(depth int) []Hash {
	zh := make([]Hash, depth+1)
	for i := 1; i <= depth; i++ {
		zh[i] = H(zh[i-1][:], zh[i-1][:])
	}
	return zh
}

// testMerkleNode computes the node at (level, pos) of a sparse tree whose
// only non-zero leaves are given in leaves, folding level 0 upward the same
// way verifyMerkleBranch folds branch siblings: left-child || right-child.
func testMerkleNode(zh []Hash, leaves map[uint64]Hash, level int, pos uint64) Hash {
	span := uint64(1) << uint(level)
	start := pos * span
	end := start + span
	any := false
	for idx := range leaves {
		if idx >= start && idx < end {
			any = true
			break
		}
	}
	if !any {
		return zh[level]
	}
	if level == 0 {
		return leaves[pos]
	}
	left := testMerkleNode(zh, leaves, level-1, pos*2)
	right := testMerkleNode(zh, leaves, level-1, pos*2+1)
	return H(left[:], right[:])
}

func testMerkleProof(zh []Hash, leaves map[uint64]Hash, idx uint64, depth int) []Hash {
	branch := make([]Hash, depth)
	for i := 0; i < depth; i++ {
		siblingPos := (idx >> uint(i)) ^ 1
		branch[i] = testMerkleNode(zh, leaves, i, siblingPos)
	}
	return branch
}

func testMerkleRoot(zh []Hash, leaves map[uint64]Hash, depth int) Hash {
	return testMerkleNode(zh, leaves, depth, 0)
}

// buildGenesisDeposits constructs n fully-funded deposits (valid Merkle
// inclusion proof against a single deposit root, valid BLS proof of
// possession) suitable for passing to Genesis.
func buildGenesisDeposits(cfg *Config, n int) ([]*Deposit, []testKey, Hash) {
	keys := make([]testKey, n)
	leaves := make(map[uint64]Hash, n)
	dds := make([]DepositData, n)

	genesisDomain := blsDomain(Fork{}, cfg.GenesisEpoch, DomainDeposit)
	for i := 0; i < n; i++ {
		k := newTestKey(int64(i + 1))
		keys[i] = k
		dd := DepositData{
			Pubkey:          k.pubkey,
			WithdrawalCreds: Hash{byte(i + 1)},
			Amount:          Gwei(cfg.MaxDepositAmount),
			Timestamp:       0,
		}
		msg := signingRoot(Hash(depositInputRoot(dd)), genesisDomain)
		dd.ProofOfPossession = k.sign(msg)
		dds[i] = dd
		leaves[uint64(i)] = Hash(depositDataRoot(dd))
	}

	zh := testZeroHashes(depositTreeDepth)
	root := testMerkleRoot(zh, leaves, depositTreeDepth)

	deposits := make([]*Deposit, n)
	for i := 0; i < n; i++ {
		deposits[i] = &Deposit{
			Proof:       testMerkleProof(zh, leaves, uint64(i), depositTreeDepth),
			Index:       uint64(i),
			DepositData: dds[i],
		}
	}
	return deposits, keys, root
}

// buildGenesisState constructs a QuickConfig-scale genesis state with n
// fully-funded, immediately-active validators.
func buildGenesisState(cfg *Config, n int) (*BeaconState, []testKey, error) {
	deposits, keys, root := buildGenesisDeposits(cfg, n)
	state, err := Genesis(deposits, 1_600_000_000, Eth1Data{
		DepositRoot:  root,
		DepositCount: uint64(n),
		BlockHash:    Hash{0xE1},
	}, cfg)
	if err != nil {
		return nil, nil, err
	}
	return state, keys, nil
}

// epochAttestations builds PendingAttestations crediting the first `voters`
// validators encountered walking the epoch's slots committee by committee,
// all targeting epoch with the given source checkpoint. Committees partition
// the active set across the epoch's slots, so voters counts distinct
// validators. The attestations are injected directly into a state's
// attestation pool, bypassing ProcessAttestation's full validation pipeline,
// the way a test isolating the Casper FFG engine from committee/signature
// plumbing needs to.
func epochAttestations(state *BeaconState, cfg *Config, epoch, sourceEpoch Epoch, voters int) ([]*PendingAttestation, error) {
	startSlot := EpochStartSlot(epoch, cfg.SlotsPerEpoch)
	targetRoot := EpochBoundaryRoot(state, epoch, cfg)
	sourceRoot := EpochBoundaryRoot(state, sourceEpoch, cfg)

	var atts []*PendingAttestation
	credited := 0
	for offset := uint64(0); offset < cfg.SlotsPerEpoch && credited < voters; offset++ {
		slot := startSlot + Slot(offset)
		committees, err := CrosslinkCommitteesAtSlot(state, slot, false, cfg)
		if err != nil {
			return nil, err
		}
		for _, c := range committees {
			if credited >= voters || len(c.Committee) == 0 {
				continue
			}
			bitfield := make([]byte, (len(c.Committee)+7)/8)
			for i := range c.Committee {
				if credited >= voters {
					break
				}
				bitfield[i/8] |= 1 << uint(i%8)
				credited++
			}
			atts = append(atts, &PendingAttestation{
				AggregationBitfield: bitfield,
				CustodyBitfield:     make([]byte, (len(c.Committee)+7)/8),
				Data: AttestationData{
					Slot:              slot,
					Shard:             c.Shard,
					BeaconBlockRoot:   state.LatestBlockRoots[uint64(slot)%cfg.SlotsPerHistoricalRoot],
					SourceEpoch:       sourceEpoch,
					SourceRoot:        sourceRoot,
					TargetEpoch:       epoch,
					TargetRoot:        targetRoot,
					CrosslinkDataRoot: Hash{},
					PreviousCrosslink: state.LatestCrosslinks[c.Shard],
				},
				InclusionSlot: slot + 1,
			})
		}
	}
	return atts, nil
}
