package script

import "os"

func defaultReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
