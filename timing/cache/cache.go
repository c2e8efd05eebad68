package cache

import (
	"math"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Config holds cache configuration parameters.
type Config struct {
	// Size in bytes
	Size int
	// Associativity (number of ways)
	Associativity int
	// BlockSize in bytes (cache line size)
	BlockSize int
	// HitLatency in cycles
	HitLatency uint64
	// MissLatency in cycles (includes memory access time)
	MissLatency uint64
}

// DefaultConfig returns a small write-back data cache: 4 KiB, 2-way,
// 16-byte lines.
func DefaultConfig() Config {
	return Config{
		Size:          4 * 1024,
		Associativity: 2,
		BlockSize:     16,
		HitLatency:    0,
		MissLatency:   8,
	}
}

// AccessResult contains the result of a cache access.
type AccessResult struct {
	// Hit indicates whether the access was a cache hit.
	Hit bool
	// Latency is the number of cycles this access takes.
	Latency uint64
	// Data is the word read (for load operations).
	Data uint32
	// Evicted is true if a valid block was evicted.
	Evicted bool
	// EvictedAddr is the address of the evicted block (if Evicted is true).
	EvictedAddr uint32
}

// Cache is a write-back, write-allocate data cache using an Akita
// directory for tags and LRU replacement.
type Cache struct {
	config Config

	directory *akitacache.DirectoryImpl

	// Data storage - indexed by (setID * associativity + wayID)
	dataStore [][]byte

	stats Statistics

	backing BackingStore
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64
}

// BackingStore interface for the next level in the memory hierarchy.
type BackingStore interface {
	// Read fetches data from the backing store.
	Read(addr uint32, size int) []byte
	// Write stores data to the backing store.
	Write(addr uint32, data []byte)
}

// New creates a new cache with the given configuration.
func New(config Config, backing BackingStore) *Cache {
	numSets := config.Size / (config.Associativity * config.BlockSize)
	totalBlocks := numSets * config.Associativity

	dataStore := make([][]byte, totalBlocks)
	for i := range dataStore {
		dataStore[i] = make([]byte, config.BlockSize)
	}

	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		dataStore: dataStore,
		backing:   backing,
	}
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// ResetStats clears cache statistics.
func (c *Cache) ResetStats() {
	c.stats = Statistics{}
}

func (c *Cache) blockIndex(block *akitacache.Block) int {
	return block.SetID*c.config.Associativity + block.WayID
}

func (c *Cache) blockAddr(addr uint32) uint32 {
	return addr &^ uint32(c.config.BlockSize-1)
}

func (c *Cache) lookup(addr uint32) *akitacache.Block {
	block := c.directory.Lookup(0, uint64(c.blockAddr(addr)))
	if block == nil || !block.IsValid {
		return nil
	}
	return block
}

// Read reads the word containing addr.
func (c *Cache) Read(addr uint32) AccessResult {
	c.stats.Reads++
	addr &^= 3

	if block := c.lookup(addr); block != nil {
		c.stats.Hits++
		c.directory.Visit(block)

		blockData := c.dataStore[c.blockIndex(block)]
		return AccessResult{
			Hit:     true,
			Latency: c.config.HitLatency,
			Data:    extractWord(blockData, c.offset(addr)),
		}
	}

	c.stats.Misses++
	result, block := c.handleMiss(addr)
	result.Data = extractWord(c.dataStore[c.blockIndex(block)], c.offset(addr))
	return result
}

// Write performs a byte-strobed write to the word containing addr.
// Uses write-allocate policy: on miss, fetch the block first, then write.
func (c *Cache) Write(addr, data uint32, strobe uint8) AccessResult {
	c.stats.Writes++
	addr &^= 3

	if block := c.lookup(addr); block != nil {
		c.stats.Hits++
		c.directory.Visit(block)

		storeWord(c.dataStore[c.blockIndex(block)], c.offset(addr), data, strobe)
		block.IsDirty = true

		return AccessResult{
			Hit:     true,
			Latency: c.config.HitLatency,
		}
	}

	c.stats.Misses++
	result, block := c.handleMiss(addr)
	storeWord(c.dataStore[c.blockIndex(block)], c.offset(addr), data, strobe)
	block.IsDirty = true
	return result
}

func (c *Cache) offset(addr uint32) int {
	return int(addr & uint32(c.config.BlockSize-1))
}

// handleMiss fills the block containing addr, evicting and writing back a
// victim if needed, and returns the filled block.
func (c *Cache) handleMiss(addr uint32) (AccessResult, *akitacache.Block) {
	result := AccessResult{
		Hit:     false,
		Latency: c.config.MissLatency,
	}

	blockAddr := c.blockAddr(addr)

	victim := c.directory.FindVictim(uint64(blockAddr))
	victimData := c.dataStore[c.blockIndex(victim)]

	if victim.IsValid {
		c.stats.Evictions++
		result.Evicted = true
		result.EvictedAddr = uint32(victim.Tag)

		if victim.IsDirty && c.backing != nil {
			c.stats.Writebacks++
			c.backing.Write(uint32(victim.Tag), victimData)
		}
	}

	if c.backing != nil {
		copy(victimData, c.backing.Read(blockAddr, c.config.BlockSize))
	} else {
		for i := range victimData {
			victimData[i] = 0
		}
	}

	// The tag holds the block-aligned address.
	victim.Tag = uint64(blockAddr)
	victim.IsValid = true
	victim.IsDirty = false

	c.directory.Visit(victim)

	return result, victim
}

// Invalidate marks a cache line as invalid without writeback.
func (c *Cache) Invalidate(addr uint32) {
	if block := c.lookup(addr); block != nil {
		block.IsValid = false
		block.IsDirty = false
	}
}

// Flush writes back all dirty blocks and invalidates them.
func (c *Cache) Flush() {
	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid && block.IsDirty && c.backing != nil {
				c.backing.Write(uint32(block.Tag), c.dataStore[c.blockIndex(block)])
				c.stats.Writebacks++
			}
			block.IsValid = false
			block.IsDirty = false
		}
	}
}

// Reset invalidates all cache lines without writeback.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
}

// TimedRead reads a word, reporting the cache latency as extra response
// cycles.
func (c *Cache) TimedRead(addr uint32) (uint32, int) {
	r := c.Read(addr)
	return r.Data, cycles(r.Latency)
}

// TimedWrite writes a word, reporting the cache latency as extra response
// cycles.
func (c *Cache) TimedWrite(addr, data uint32, strobe uint8) int {
	return cycles(c.Write(addr, data, strobe).Latency)
}

// cycles converts a latency to an int cycle count, saturating at MaxInt32.
func cycles(latency uint64) int {
	return int(min(latency, math.MaxInt32))
}

func extractWord(data []byte, offset int) uint32 {
	if offset+4 > len(data) {
		return 0
	}
	return uint32(data[offset]) | uint32(data[offset+1])<<8 |
		uint32(data[offset+2])<<16 | uint32(data[offset+3])<<24
}

func storeWord(data []byte, offset int, value uint32, strobe uint8) {
	if offset+4 > len(data) {
		return
	}
	for lane := 0; lane < 4; lane++ {
		if strobe&(1<<lane) != 0 {
			data[offset+lane] = byte(value >> (8 * lane))
		}
	}
}
