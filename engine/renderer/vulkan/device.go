package vulkan

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
)

type VulkanDevice struct {
	PhysicalDevice     vk.PhysicalDevice
	LogicalDevice      vk.Device
	GraphicsQueueIndex uint32
	GraphicsQueue      vk.Queue

	Properties vk.PhysicalDeviceProperties
}

// NewContext initializes the Vulkan loader, creates an instance with the
// provided windowing extensions and brings up a logical device with one
// graphics queue.
func NewContext(appName string, requiredExtensions []string, width, height uint32) (*VulkanContext, error) {
	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize vulkan: %s", err)
		return nil, err
	}

	context := &VulkanContext{
		FramebufferWidth:  width,
		FramebufferHeight: height,
		Allocator:         nil,
	}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 2, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Lumen"),
	}

	extensions := []string{"VK_KHR_surface"}
	extensions = append(extensions, requiredExtensions...)
	if runtime.GOOS == "darwin" {
		extensions = append(extensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
	}

	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensions),
	}
	if runtime.GOOS == "darwin" {
		createInfo.Flags |= 1
	}

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, context.Allocator, &instance); res != vk.Success {
		err := fmt.Errorf("vkCreateInstance failed with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	context.Instance = instance

	if err := vk.InitInstance(instance); err != nil {
		core.LogError("failed to initialize vulkan instance: %s", err)
		return nil, err
	}

	device, err := deviceCreate(context)
	if err != nil {
		return nil, err
	}
	context.Device = device
	return context, nil
}

func deviceCreate(context *VulkanContext) (*VulkanDevice, error) {
	physicalDevice, err := selectPhysicalDevice(context)
	if err != nil {
		return nil, err
	}

	device := &VulkanDevice{PhysicalDevice: physicalDevice}
	vk.GetPhysicalDeviceProperties(physicalDevice, &device.Properties)
	device.Properties.Deref()

	queueIndex, err := findGraphicsQueueFamily(physicalDevice)
	if err != nil {
		return nil, err
	}
	device.GraphicsQueueIndex = queueIndex

	queueCreateInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: queueIndex,
		QueueCount:       1,
		PQueuePriorities: []float32{1.0},
	}}

	deviceFeatures := vk.PhysicalDeviceFeatures{
		SamplerAnisotropy:                      vk.True,
		ShaderSampledImageArrayDynamicIndexing: vk.True,
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   0,
		PpEnabledExtensionNames: nil,
	}

	if res := vk.CreateDevice(
		physicalDevice,
		&deviceCreateInfo,
		context.Allocator,
		&device.LogicalDevice); res != vk.Success {
		err := fmt.Errorf("vkCreateDevice failed with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	core.LogInfo("Logical device created.")

	vk.GetDeviceQueue(device.LogicalDevice, queueIndex, 0, &device.GraphicsQueue)
	return device, nil
}

func selectPhysicalDevice(context *VulkanContext) (vk.PhysicalDevice, error) {
	var physicalDeviceCount uint32
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil); res != vk.Success {
		return nil, fmt.Errorf("vkEnumeratePhysicalDevices failed with %s", VulkanResultString(res))
	}
	if physicalDeviceCount == 0 {
		return nil, fmt.Errorf("no devices which support Vulkan were found")
	}

	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices); res != vk.Success {
		return nil, fmt.Errorf("vkEnumeratePhysicalDevices failed with %s", VulkanResultString(res))
	}

	// Prefer a discrete GPU, fall back to whatever enumerates first.
	selected := physicalDevices[0]
	for _, pd := range physicalDevices {
		var props vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(pd, &props)
		props.Deref()
		if props.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu {
			selected = pd
			break
		}
	}
	return selected, nil
}

func findGraphicsQueueFamily(physicalDevice vk.PhysicalDevice) (uint32, error) {
	var queueCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(physicalDevice, &queueCount, nil)
	if queueCount == 0 {
		return 0, fmt.Errorf("no queue families found on physical device")
	}

	queueProperties := make([]vk.QueueFamilyProperties, queueCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(physicalDevice, &queueCount, queueProperties)

	for i := uint32(0); i < queueCount; i++ {
		queueProperties[i].Deref()
		if queueProperties[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			return i, nil
		}
	}
	return 0, fmt.Errorf("could not find a queue with graphics capabilities")
}

func (d *VulkanDevice) Destroy(context *VulkanContext) {
	if d.LogicalDevice != nil {
		vk.DeviceWaitIdle(d.LogicalDevice)
		vk.DestroyDevice(d.LogicalDevice, context.Allocator)
		d.LogicalDevice = nil
	}
}
