/*
Package service drives announced Groth16 proofs through their lifecycle.

Proof announcements are discovered on the ledger and recorded as pending.
Pending proofs are verified off-chain, and the state commitment of every valid
proof is submitted back to the ledger exactly when its confirmation delay
elapses. A proof that misses its submission window is failed as expired.

The three stages run as independent loops. They coordinate only through
compare-and-set transitions in the proof store, so a proof is claimed by at
most one worker per stage.
*/
package service
