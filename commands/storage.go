/*
 Supplier and acceptor of commands
*/

package commands

type CommandStorage interface {
	Supplier
	Consumer
}

type Supplier interface {
	Next() (Entry, bool)
	Len() int
}

type Consumer interface {
	Accept(int, Command)
}

// Entry is a command with its index in the source stream
type Entry struct {
	Index int
	Cmd   Command
}

type Storage struct {
	index   int
	entries []Entry
}

func NewStorage() *Storage {
	retVal := new(Storage)
	retVal.entries = make([]Entry, 0)
	return retVal
}

// FromCommands indexes the commands by their position
func FromCommands(cmds []Command) *Storage {
	retVal := &Storage{entries: make([]Entry, len(cmds))}
	for i := range cmds {
		retVal.entries[i] = Entry{i, cmds[i]}
	}
	return retVal
}

// Next returns false when there are no more commands in the storage
func (storage *Storage) Next() (Entry, bool) {
	if storage.index >= len(storage.entries) {
		return Entry{}, false
	}
	index := storage.index
	storage.index++
	return storage.entries[index], true
}

func (storage *Storage) Accept(idx int, c Command) {
	storage.entries = append(storage.entries, Entry{idx, c})
}

func (storage *Storage) Len() int {
	return len(storage.entries)
}

func (storage *Storage) ResetPos() {
	storage.index = 0
}

func (storage *Storage) Empty() {
	storage.index = 0
	storage.entries = storage.entries[:0]
}

func (storage *Storage) PeekPos() int {
	return storage.index
}

func (storage *Storage) ToArray() []Entry {
	retVal := make([]Entry, len(storage.entries))
	copy(retVal, storage.entries)
	return retVal
}
