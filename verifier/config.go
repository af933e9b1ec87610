package verifier

import "time"

const (
	BackendExec    = "exec"
	BackendGroth16 = "groth16"
)

type Config struct {
	Backend         string `long:"verifier"         description:"verification backend" choice:"exec" choice:"groth16"`
	VerificationKey string `long:"verification-key" description:"path to the snarkjs verification key" env:"VERIFICATION_KEY_PATH"`

	Command       string        `long:"verifier-cmd"     description:"verifier executable"`
	Args          string        `long:"verifier-args"    description:"verifier arguments, {vk} {proof} and {public} are substituted"`
	SuccessMarker string        `long:"verifier-marker"  description:"text the verifier prints on success"`
	Timeout       time.Duration `long:"verifier-timeout" description:"timeout of a single verification"`

	CacheSize int `long:"verifier-cache-size" description:"number of verification results to cache, 0 disables the cache"`
}

func DefaultConfig() Config {
	return Config{
		Backend:         BackendExec,
		VerificationKey: "verification_key.json",
		Command:         "snarkjs",
		Args:            "groth16 verify {vk} {public} {proof}",
		SuccessMarker:   "OK!",
		Timeout:         time.Minute,
		CacheSize:       1024,
	}
}
