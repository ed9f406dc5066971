package assets

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/spaghettifunk/lumen/engine/core"
)

type AssetType int

const (
	AssetTypeNone AssetType = iota
	AssetTypeModel
	AssetTypeTexture
	AssetTypeShader
)

type AssetInfo struct {
	ID         uuid.UUID
	Path       string
	Type       AssetType
	LastLoaded time.Time
}

/**
 * @brief AssetManager indexes everything under the asset directory and
 * watches it for changes. A change to a known asset invokes the OnChange
 * hook, which the application uses to restart frame accumulation.
 */
type AssetManager struct {
	assets map[string]AssetInfo

	// OnChange fires for every created or modified asset.
	OnChange func(info AssetInfo)

	mutex sync.RWMutex

	done     chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
}

func NewAssetManager() (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &AssetManager{
		assets:   make(map[string]AssetInfo),
		fsnotify: fsWatch,
		done:     make(chan struct{}),
	}, nil
}

func (am *AssetManager) Initialize(assetsDir string) error {
	go am.start()

	return am.addRecursive(assetsDir)
}

// AddRecursive starts watching the named directory and all sub-directories.
func (am *AssetManager) addRecursive(name string) error {
	if am.isClosed {
		return errors.New("asset manager already closed")
	}
	return am.watchRecursive(name)
}

// Find returns the indexed asset for a path, if any.
func (am *AssetManager) Find(path string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[path]
	return info, ok
}

// ByType lists every indexed asset of the given type.
func (am *AssetManager) ByType(assetType AssetType) []AssetInfo {
	am.mutex.RLock()
	defer am.mutex.RUnlock()

	var out []AssetInfo
	for _, info := range am.assets {
		if info.Type == assetType {
			out = append(out, info)
		}
	}
	return out
}

func (am *AssetManager) start() {
	for {
		select {
		case e := <-am.fsnotify.Events:
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					am.watchRecursive(e.Name)
				}
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				am.handleFileEvent(e.Name)
			}
			if e.Op&fsnotify.Remove != 0 {
				am.removeAsset(e.Name)
				am.fsnotify.Remove(e.Name)
			}

		case e := <-am.fsnotify.Errors:
			if e != nil {
				core.LogError(e.Error())
			}

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

// watchRecursive adds all directories under the given one to the watch
// list and indexes the files already present.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return am.fsnotify.Add(walkPath)
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

// Handle the creation or modification of a file.
func (am *AssetManager) handleFileEvent(path string) {
	assetType := determineAssetType(path)
	if assetType == AssetTypeNone {
		return
	}

	am.mutex.Lock()
	info, known := am.assets[path]
	if !known {
		info = AssetInfo{ID: uuid.New(), Path: path, Type: assetType}
	}
	info.LastLoaded = time.Now()
	am.assets[path] = info
	hook := am.OnChange
	am.mutex.Unlock()

	if known && hook != nil {
		hook(info)
	}
}

// Remove the asset from the index if it was deleted.
func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	delete(am.assets, path)
}

func (am *AssetManager) Shutdown() {
	if am.isClosed {
		return
	}
	am.isClosed = true
	close(am.done)
}

func determineAssetType(path string) AssetType {
	switch filepath.Ext(path) {
	case ".obj", ".mtl":
		return AssetTypeModel
	case ".png", ".jpg", ".jpeg", ".bmp":
		return AssetTypeTexture
	case ".spv", ".vert", ".frag", ".rgen", ".rmiss", ".rchit", ".rahit", ".rint":
		return AssetTypeShader
	default:
		return AssetTypeNone
	}
}
