// Package di 提供以名称为键的依赖注入容器。
//
// 本包不提供任何进程级全局容器：容器应在应用启动阶段构造，
// 并通过构造函数参数显式传递给需要它的对象。
// 全局容器会带来隐式的启动顺序依赖，并让测试难以彼此隔离，
// 依赖关系也无法从函数签名中看出。
package di

import (
	"fmt"
	"reflect"
	"sync"

	"dbchain/errors"
)

// IContainer 依赖注入容器接口。
type IContainer interface {
	// RegisterConstructor 注册构造函数，以第一个返回值的类型串作为服务名
	RegisterConstructor(constructor any) error

	// RegisterSingleton 注册惰性单例工厂，首次 Resolve 时才执行
	RegisterSingleton(name string, factory any) error

	// RegisterInstance 注册现成实例
	RegisterInstance(name string, instance any) error

	// Alias 为已注册服务增加别名，解析别名时透传到目标服务
	Alias(alias, name string) error

	// Resolve 解析服务
	Resolve(name string) (any, error)

	// ResolveTo 解析并赋值到目标指针
	ResolveTo(name string, target any) error

	// IsRegistered 检查名称（含别名）是否已注册
	IsRegistered(name string) bool

	// RegisteredNames 返回全部注册名称（含别名）
	RegisteredNames() []string

	// Clear 清空容器
	Clear()
}

// Container 以名称为键的惰性单例容器
//
// 工厂在首次解析时执行，成功的结果缓存为单例；
// 失败的结果不缓存，后续每次解析都会重新执行工厂并再次返回错误。
type Container struct {
	factories map[string]any
	instances map[string]any
	aliases   map[string]string
	mutex     sync.RWMutex
}

var _ IContainer = (*Container)(nil)

// New 创建容器
func New() *Container {
	return &Container{
		factories: make(map[string]any),
		instances: make(map[string]any),
		aliases:   make(map[string]string),
	}
}

func (c *Container) RegisterConstructor(constructor any) error {
	if constructor == nil {
		return errors.NewError(errors.ErrCodeInvalidInput, "constructor cannot be nil")
	}
	t := reflect.TypeOf(constructor)
	if t.Kind() != reflect.Func {
		return errors.NewError(errors.ErrCodeInvalidInput, "parameter must be a function")
	}
	if t.NumOut() == 0 {
		return errors.NewError(errors.ErrCodeInvalidInput, "constructor must have a return value")
	}
	name := t.Out(0).String()
	return c.RegisterSingleton(name, constructor)
}

func (c *Container) RegisterSingleton(name string, factory any) error {
	if name == "" {
		return errors.NewError(errors.ErrCodeInvalidInput, "service name cannot be empty")
	}
	if factory == nil {
		return errors.NewError(errors.ErrCodeInvalidInput, "factory cannot be nil")
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.registered(name) {
		return errors.NewError(errors.ErrCodeConflict, fmt.Sprintf("service %s already registered", name))
	}
	c.factories[name] = factory
	return nil
}

func (c *Container) RegisterInstance(name string, instance any) error {
	if name == "" {
		return errors.NewError(errors.ErrCodeInvalidInput, "service name cannot be empty")
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.registered(name) {
		return errors.NewError(errors.ErrCodeConflict, fmt.Sprintf("service %s already registered", name))
	}
	c.instances[name] = instance
	return nil
}

func (c *Container) Alias(alias, name string) error {
	if alias == "" || name == "" {
		return errors.NewError(errors.ErrCodeInvalidInput, "alias and service name cannot be empty")
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.registered(alias) {
		return errors.NewError(errors.ErrCodeConflict, fmt.Sprintf("service %s already registered", alias))
	}
	if !c.registered(name) {
		return errors.NewError(errors.ErrCodeNotFound, fmt.Sprintf("service %s not registered", name))
	}
	c.aliases[alias] = name
	return nil
}

func (c *Container) Resolve(name string) (any, error) {
	c.mutex.RLock()
	name = c.canonical(name)
	if inst, ok := c.instances[name]; ok {
		c.mutex.RUnlock()
		return inst, nil
	}
	factory, ok := c.factories[name]
	c.mutex.RUnlock()
	if !ok {
		return nil, errors.NewError(errors.ErrCodeNotFound, fmt.Sprintf("service %s not registered", name))
	}

	// 工厂执行不持锁，失败直接上抛且不缓存
	inst, err := c.createInstance(factory)
	if err != nil {
		return nil, err
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()
	// 并发首次解析时先完成者胜出
	if existing, ok := c.instances[name]; ok {
		return existing, nil
	}
	c.instances[name] = inst
	return inst, nil
}

func (c *Container) ResolveTo(name string, target any) error {
	inst, err := c.Resolve(name)
	if err != nil {
		return err
	}
	if target == nil {
		return errors.NewError(errors.ErrCodeInvalidInput, "target cannot be nil")
	}
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr {
		return errors.NewError(errors.ErrCodeInvalidInput, "target must be a pointer")
	}
	iv := reflect.ValueOf(inst)
	if !iv.Type().AssignableTo(v.Elem().Type()) {
		return errors.NewError(errors.ErrCodeInvalidInput, fmt.Sprintf("cannot assign %s to %s", iv.Type(), v.Elem().Type()))
	}
	v.Elem().Set(iv)
	return nil
}

func (c *Container) IsRegistered(name string) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.registered(name)
}

func (c *Container) RegisteredNames() []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	names := make([]string, 0, len(c.factories)+len(c.instances)+len(c.aliases))
	for k := range c.factories {
		names = append(names, k)
	}
	for k := range c.instances {
		if _, ok := c.factories[k]; !ok {
			names = append(names, k)
		}
	}
	for k := range c.aliases {
		names = append(names, k)
	}
	return names
}

func (c *Container) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.factories = make(map[string]any)
	c.instances = make(map[string]any)
	c.aliases = make(map[string]string)
}

// registered 检查名称是否已占用（调用方须持锁）
func (c *Container) registered(name string) bool {
	name = c.canonical(name)
	if _, ok := c.factories[name]; ok {
		return true
	}
	_, ok := c.instances[name]
	return ok
}

// canonical 沿别名链找到目标服务名（调用方须持锁）
func (c *Container) canonical(name string) string {
	for i := 0; i < len(c.aliases); i++ {
		target, ok := c.aliases[name]
		if !ok {
			return name
		}
		name = target
	}
	return name
}

// createInstance 执行工厂函数
//
// 工厂参数按类型串从容器解析；返回值约定为 (T) 或 (T, error)。
// 非函数的注册值原样返回。
func (c *Container) createInstance(factory any) (any, error) {
	fv := reflect.ValueOf(factory)
	ft := fv.Type()
	if ft.Kind() != reflect.Func {
		return factory, nil
	}
	args := make([]reflect.Value, ft.NumIn())
	for i := 0; i < ft.NumIn(); i++ {
		paramType := ft.In(i)
		inst, err := c.resolveParameter(paramType)
		if err != nil {
			return nil, errors.WrapError(err, errors.ErrCodeDependency,
				fmt.Sprintf("failed to resolve parameter %s", paramType))
		}
		args[i] = reflect.ValueOf(inst)
	}
	results := fv.Call(args)
	if len(results) == 0 {
		return nil, errors.NewError(errors.ErrCodeInternal, "factory function has no return value")
	}
	if len(results) == 2 && !results[1].IsNil() {
		if err, ok := results[1].Interface().(error); ok {
			return nil, err
		}
	}
	return results[0].Interface(), nil
}

func (c *Container) resolveParameter(paramType reflect.Type) (any, error) {
	// 先按完整类型串查找
	if c.IsRegistered(paramType.String()) {
		return c.Resolve(paramType.String())
	}
	// 指针参数再试元素类型
	if paramType.Kind() == reflect.Ptr {
		if c.IsRegistered(paramType.Elem().String()) {
			return c.Resolve(paramType.Elem().String())
		}
	}
	// 接口参数按接口名弱匹配
	if paramType.Kind() == reflect.Interface {
		if c.IsRegistered(paramType.Name()) {
			return c.Resolve(paramType.Name())
		}
	}
	return nil, errors.NewError(errors.ErrCodeNotFound, fmt.Sprintf("cannot resolve parameter type: %s", paramType))
}
